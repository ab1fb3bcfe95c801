// tensor.go - Tensor im Hauptspeicher
// Hauptfunktionen: NewTensor, Zeros, Shape, Floats, Clone, SameShape
package ml

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

var ErrShapeMismatch = errors.New("data length does not match shape")

// Tensor ist ein n-dimensionales Array mit fester Shape.
// Die Werte liegen unabhaengig vom DType als float64 vor; der DType
// bestimmt nur die Darstellung beim Schreiben.
type Tensor struct {
	dtype DType
	shape []int
	data  []float64
}

// NewTensor erstellt einen Tensor aus vorhandenen Daten (ohne Kopie)
func NewTensor(dtype DType, data []float64, shape ...int) (*Tensor, error) {
	if n := mul(shape...); n != len(data) {
		return nil, fmt.Errorf("%w: shape %v wants %d elements, got %d", ErrShapeMismatch, shape, n, len(data))
	}

	return &Tensor{dtype: dtype, shape: slices.Clone(shape), data: data}, nil
}

// Zeros erstellt einen mit Nullen gefuellten Tensor
func Zeros(dtype DType, shape ...int) *Tensor {
	return &Tensor{dtype: dtype, shape: slices.Clone(shape), data: make([]float64, mul(shape...))}
}

func (t *Tensor) DType() DType {
	return t.dtype
}

// Shape gibt eine Kopie der Shape zurueck
func (t *Tensor) Shape() []int {
	return slices.Clone(t.shape)
}

func (t *Tensor) Rank() int {
	return len(t.shape)
}

// Len ist die Anzahl der Elemente
func (t *Tensor) Len() int {
	return len(t.data)
}

// Floats gibt den Backing-Slice zurueck. Aenderungen wirken auf den Tensor.
func (t *Tensor) Floats() []float64 {
	return t.data
}

// Bytes ist die serialisierte Groesse im eigenen DType
func (t *Tensor) Bytes() uint64 {
	return uint64(len(t.data)) * uint64(t.dtype.Size())
}

func (t *Tensor) Clone() *Tensor {
	return &Tensor{dtype: t.dtype, shape: slices.Clone(t.shape), data: slices.Clone(t.data)}
}

// WithDType gibt einen Tensor mit denselben Daten und anderem DType zurueck
func (t *Tensor) WithDType(dtype DType) *Tensor {
	return &Tensor{dtype: dtype, shape: t.shape, data: t.data}
}

// SameShape meldet identische Shapes
func (t *Tensor) SameShape(other *Tensor) bool {
	return slices.Equal(t.shape, other.shape)
}

func (t *Tensor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("dtype", t.dtype.String()),
		slog.Any("shape", t.shape),
	)
}

type number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

func mul[T number](s ...T) T {
	p := T(1)
	for _, v := range s {
		p *= v
	}

	return p
}
