//go:build !linux

package discover

// GetMemoryInfo ist ausserhalb von Linux nicht implementiert; der Aufrufer
// faellt auf eine feste Batch-Groesse zurueck.
func GetMemoryInfo() (MemoryInfo, error) {
	return MemoryInfo{}, ErrUnsupported
}
