// reader.go - Legacy PyTorch-Checkpoints (.pt/.pth/.ckpt/.bin) laden
//
// Enthaelt:
// - ReadFile: entpickelt die Datei und sammelt alle Tensoren
// - FromValue: wandelt den Pickle-Root (dict, OrderedDict, {"state_dict": ...}) um
// - fromTorch: liest Storage ueber Offset und Strides, auch nicht-zusammenhaengend
package torch

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"

	"github.com/loramerge/loramerge/ml"
)

var (
	ErrNotADict           = errors.New("pickle root is not a dictionary")
	ErrUnsupportedStorage = errors.New("unsupported torch storage")
)

// ReadFile laedt einen PyTorch-Checkpoint
func ReadFile(path string) (ml.Dictionary, error) {
	pt, err := pytorch.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	return FromValue(pt)
}

// FromValue wandelt einen entpickelten Wert in ein Dictionary um
func FromValue(v any) (ml.Dictionary, error) {
	if inner, ok := lookup(v, "state_dict"); ok {
		v = inner
	}

	d := make(ml.Dictionary)
	err := each(v, func(key any, value any) error {
		name, ok := key.(string)
		if !ok {
			slog.Debug("skipping non-string key", "key", key)
			return nil
		}

		tt, ok := value.(*pytorch.Tensor)
		if !ok {
			slog.Debug("skipping non-tensor value", "key", name, "type", fmt.Sprintf("%T", value))
			return nil
		}

		t, err := fromTorch(tt)
		if err != nil {
			return fmt.Errorf("tensor %q: %w", name, err)
		}

		d[name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	return d, nil
}

func each(v any, fn func(key, value any) error) error {
	switch m := v.(type) {
	case *types.Dict:
		for _, k := range m.Keys() {
			if err := fn(k, m.MustGet(k)); err != nil {
				return err
			}
		}
	case *types.OrderedDict:
		for e := m.List.Front(); e != nil; e = e.Next() {
			entry := e.Value.(*types.OrderedDictEntry)
			if err := fn(entry.Key, entry.Value); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %T", ErrNotADict, v)
	}

	return nil
}

func lookup(v any, key string) (any, bool) {
	switch m := v.(type) {
	case *types.Dict:
		return m.Get(key)
	case *types.OrderedDict:
		return m.Get(key)
	}
	return nil, false
}

func fromTorch(t *pytorch.Tensor) (*ml.Tensor, error) {
	var (
		dtype ml.DType
		data  []float64
		err   error
	)

	switch s := t.Source.(type) {
	case *pytorch.FloatStorage:
		dtype = ml.DTypeFloat32
		data, err = gather(s.Data, t.StorageOffset, t.Size, t.Stride)
	case *pytorch.HalfStorage:
		dtype = ml.DTypeFloat16
		data, err = gather(s.Data, t.StorageOffset, t.Size, t.Stride)
	case *pytorch.BFloat16Storage:
		dtype = ml.DTypeBfloat16
		data, err = gather(s.Data, t.StorageOffset, t.Size, t.Stride)
	case *pytorch.DoubleStorage:
		dtype = ml.DTypeFloat64
		data, err = gather(s.Data, t.StorageOffset, t.Size, t.Stride)
	case *pytorch.LongStorage:
		dtype = ml.DTypeInt64
		data, err = gather(s.Data, t.StorageOffset, t.Size, t.Stride)
	case *pytorch.IntStorage:
		dtype = ml.DTypeInt32
		data, err = gather(s.Data, t.StorageOffset, t.Size, t.Stride)
	case *pytorch.ShortStorage:
		dtype = ml.DTypeInt16
		data, err = gather(s.Data, t.StorageOffset, t.Size, t.Stride)
	case *pytorch.CharStorage:
		dtype = ml.DTypeInt8
		data, err = gather(s.Data, t.StorageOffset, t.Size, t.Stride)
	case *pytorch.ByteStorage:
		dtype = ml.DTypeUint8
		data, err = gather(s.Data, t.StorageOffset, t.Size, t.Stride)
	case *pytorch.BoolStorage:
		u8s := make([]uint8, len(s.Data))
		for i, b := range s.Data {
			if b {
				u8s[i] = 1
			}
		}
		dtype = ml.DTypeBool
		data, err = gather(u8s, t.StorageOffset, t.Size, t.Stride)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedStorage, t.Source)
	}
	if err != nil {
		return nil, err
	}

	return ml.NewTensor(dtype, data, t.Size...)
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~float32 | ~float64
}

// gather kopiert die Elemente einer (evtl. gestrideten) Ansicht in
// zeilenweiser Reihenfolge
func gather[T number](src []T, offset int, size, stride []int) ([]float64, error) {
	if len(stride) != len(size) {
		stride = contiguous(size)
	}

	n := 1
	last := offset
	for d := range size {
		n *= size[d]
		if size[d] > 0 {
			last += (size[d] - 1) * stride[d]
		}
	}

	out := make([]float64, n)
	if n == 0 {
		return out, nil
	}

	if offset < 0 || last >= len(src) {
		return nil, fmt.Errorf("view [%d, %d] exceeds storage of %d elements", offset, last, len(src))
	}

	idx := make([]int, len(size))
	for i := range out {
		pos := offset
		for d := range idx {
			pos += idx[d] * stride[d]
		}
		out[i] = float64(src[pos])

		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < size[d] {
				break
			}
			idx[d] = 0
		}
	}

	return out, nil
}

func contiguous(size []int) []int {
	stride := make([]int, len(size))
	s := 1
	for d := len(size) - 1; d >= 0; d-- {
		stride[d] = s
		s *= size[d]
	}
	return stride
}
