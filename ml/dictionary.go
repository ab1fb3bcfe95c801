// dictionary.go - Gewichts-Dictionary eines Modells
package ml

import (
	"maps"
	"slices"
)

// Dictionary bildet Layer-Keys auf Tensoren ab
type Dictionary map[string]*Tensor

// Keys gibt die Layer-Keys sortiert zurueck
func (d Dictionary) Keys() []string {
	return slices.Sorted(maps.Keys(d))
}

// Bytes ist die Summe der Tensor-Groessen
func (d Dictionary) Bytes() (n uint64) {
	for _, t := range d {
		n += t.Bytes()
	}
	return n
}
