// config_features.go - Feature-Flags und Grenzen fuer den Bulk-Merge
package envconfig

var (
	// NoJournal deaktiviert die Merge-Historie
	NoJournal = Bool("LORAMERGE_NOJOURNAL")

	// BatchSize ist die Obergrenze an Modellen pro Fold-Durchlauf
	BatchSize = Uint("LORAMERGE_BATCH_SIZE", 4)

	// MemoryHeadroom ist der Anteil des freien Speichers, den ein
	// Fold-Batch einplanen darf
	MemoryHeadroom = Fraction("LORAMERGE_MEMORY_HEADROOM", 0.8)
)
