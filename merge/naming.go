// naming.go - Deterministische Dateinamen fuer Merge-Ergebnisse
// Hauptfunktionen: ArtifactName, BulkArtifactName
package merge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/dlclark/regexp2"
)

// alles ausser Buchstaben, Ziffern, Punkt und Bindestrich; Unterstriche
// trennen die Felder des Dateinamens
var unsafeChars = regexp2.MustCompile(`[^\p{L}\p{N}.\-]+`, regexp2.None)

func sanitize(stem string) string {
	s, err := unsafeChars.Replace(stem, "-", -1, -1)
	if err != nil {
		s = stem
	}

	s = strings.Trim(s, "-.")
	if s == "" {
		return "unnamed"
	}
	return s
}

// ArtifactName baut den Dateinamen eines Zwei-Quellen-Ergebnisses:
//
//	merge_<a>_<strategy>_<www>p_<b>_<hash>.safetensors
//
// Der Hash laeuft ueber das exakte Tupel (a, b, strategy, fraction), damit
// Namen auch nach dem Bereinigen der Stems und Runden des Gewichts eindeutig
// bleiben.
func ArtifactName(a, b string, s Strategy, fraction float64) string {
	return fmt.Sprintf("merge_%s_%s_%03dp_%s_%s.safetensors",
		sanitize(a), s, int(math.Round(fraction*100)), sanitize(b),
		digest(a, b, s.String(), fmt.Sprint(fraction)))
}

// BulkArtifactName baut den Dateinamen eines Bulk-Ergebnisses
func BulkArtifactName(names []string, alg Algorithm, s Strategy) string {
	return fmt.Sprintf("merge_bulk_%s_%s_%dmodels_%s.safetensors",
		alg, s, len(names), digest(append([]string{alg.String(), s.String()}, names...)...))
}

func digest(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:8]
}
