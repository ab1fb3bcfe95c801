// safetensors_test.go - Roundtrip- und Header-Tests
package safetensors

import (
	"bytes"
	"encoding/binary"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/loramerge/loramerge/ml"
)

func mustTensor(t *testing.T, dtype ml.DType, data []float64, shape ...int) *ml.Tensor {
	t.Helper()
	tt, err := ml.NewTensor(dtype, data, shape...)
	if err != nil {
		t.Fatalf("NewTensor: %v", err)
	}
	return tt
}

// rawFile baut eine Datei aus JSON-Header und Datenbytes
func rawFile(header string, data []byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint64(len(header)))
	buf.WriteString(header)
	buf.Write(data)
	return buf.Bytes()
}

func TestRoundtrip(t *testing.T) {
	d := ml.Dictionary{
		"f64":    mustTensor(t, ml.DTypeFloat64, []float64{0.1, -2.5e300}, 2),
		"f32":    mustTensor(t, ml.DTypeFloat32, []float64{1.5, -0.25, 3, 4}, 2, 2),
		"f16":    mustTensor(t, ml.DTypeFloat16, []float64{0.5, -1, 65504}, 3),
		"bf16":   mustTensor(t, ml.DTypeBfloat16, []float64{1.5, -2, 256}, 1, 3),
		"i64":    mustTensor(t, ml.DTypeInt64, []float64{-7, 1 << 40}, 2),
		"i32":    mustTensor(t, ml.DTypeInt32, []float64{-1, 2}, 2),
		"i16":    mustTensor(t, ml.DTypeInt16, []float64{-300}, 1),
		"i8":     mustTensor(t, ml.DTypeInt8, []float64{-128, 127}, 2),
		"u8":     mustTensor(t, ml.DTypeUint8, []float64{0, 255}, 2),
		"bool":   mustTensor(t, ml.DTypeBool, []float64{1, 0, 1}, 3),
		"scalar": mustTensor(t, ml.DTypeFloat32, []float64{8}),
		"empty":  mustTensor(t, ml.DTypeFloat32, []float64{}, 0, 4),
	}
	meta := map[string]string{"format": "pt", "merge.strategy": "adaptive"}

	path := filepath.Join(t.TempDir(), "roundtrip.safetensors")
	if err := WriteFile(path, d, meta); err != nil {
		t.Fatal(err)
	}

	got, gotMeta, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if !maps.Equal(meta, gotMeta) {
		t.Errorf("metadata = %v, want %v", gotMeta, meta)
	}
	if !slices.Equal(d.Keys(), got.Keys()) {
		t.Errorf("keys = %v, want %v", got.Keys(), d.Keys())
	}

	for k, want := range d {
		t.Run(k, func(t *testing.T) {
			g := got[k]
			if g == nil {
				t.Fatalf("missing tensor %q", k)
			}
			if g.DType() != want.DType() {
				t.Errorf("dtype = %v, want %v", g.DType(), want.DType())
			}
			if !slices.Equal(want.Shape(), g.Shape()) {
				t.Errorf("shape = %v, want %v", g.Shape(), want.Shape())
			}
			if !slices.Equal(want.Floats(), g.Floats()) {
				t.Errorf("values = %v, want %v", g.Floats(), want.Floats())
			}
		})
	}
}

func TestHeaderAlignment(t *testing.T) {
	d := ml.Dictionary{"a": mustTensor(t, ml.DTypeFloat16, []float64{1}, 1)}

	var buf bytes.Buffer
	if err := Write(&buf, d, nil); err != nil {
		t.Fatal(err)
	}

	n := binary.LittleEndian.Uint64(buf.Bytes()[:8])
	if n%8 != 0 {
		t.Errorf("header length %d not aligned", n)
	}
	if buf.Len() != int(8+n+2) {
		t.Errorf("file length = %d, want %d", buf.Len(), 8+n+2)
	}

	h, err := ReadHeader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Metadata) != 0 {
		t.Errorf("metadata = %v, want empty", h.Metadata)
	}
	if h.DataOffset != int64(8+n) {
		t.Errorf("data offset = %d, want %d", h.DataOffset, 8+n)
	}

	want := TensorInfo{DType: "F16", Shape: []int{1}, DataOffsets: [2]int64{0, 2}}
	if got := h.Tensors["a"]; got.DType != want.DType || !slices.Equal(got.Shape, want.Shape) || got.DataOffsets != want.DataOffsets {
		t.Errorf("tensor info = %+v, want %+v", got, want)
	}
}

func TestReadHeaderErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Leere Datei", nil},
		{"Header zu gross", binary.LittleEndian.AppendUint64(nil, maxHeaderSize+1)},
		{"Header abgeschnitten", binary.LittleEndian.AppendUint64(nil, 64)},
		{"Kein JSON", rawFile("not json", nil)},
		{"Unbekannter DType", rawFile(`{"a":{"dtype":"F8","shape":[1],"data_offsets":[0,1]}}`, nil)},
		{"Falsche Offsets", rawFile(`{"a":{"dtype":"F32","shape":[2],"data_offsets":[0,4]}}`, nil)},
		{"Negative Dimension", rawFile(`{"a":{"dtype":"F32","shape":[-1],"data_offsets":[0,0]}}`, nil)},
		{"Shape-Ueberlauf", rawFile(`{"a":{"dtype":"F64","shape":[4294967296,4294967296],"data_offsets":[0,8]}}`, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadHeader(bytes.NewReader(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReadTruncatedData(t *testing.T) {
	d := ml.Dictionary{"a": mustTensor(t, ml.DTypeFloat32, []float64{1, 2, 3, 4}, 4)}

	var buf bytes.Buffer
	if err := Write(&buf, d, nil); err != nil {
		t.Fatal(err)
	}

	truncated := buf.Bytes()[:buf.Len()-3]
	_, _, err := Read(bytes.NewReader(truncated), int64(len(truncated)))
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("err = %v, want %v", err, ErrTruncated)
	}
}

func TestReadClaimBeyondFile(t *testing.T) {
	// 64 GiB laut Header, 16 Bytes tatsaechlich vorhanden
	data := rawFile(`{"k":{"dtype":"F64","shape":[8589934592],"data_offsets":[0,68719476736]}}`, make([]byte, 16))

	_, _, err := Read(bytes.NewReader(data), int64(len(data)))
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("err = %v, want %v", err, ErrTruncated)
	}
}

func TestReadFileClaimBeyondFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liar.safetensors")
	data := rawFile(`{"k":{"dtype":"F32","shape":[1024],"data_offsets":[0,4096]}}`, make([]byte, 8))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := ReadFile(path); !errors.Is(err, ErrTruncated) {
		t.Errorf("err = %v, want %v", err, ErrTruncated)
	}
}

func TestWriteFileNoLeftovers(t *testing.T) {
	dir := t.TempDir()
	d := ml.Dictionary{"a": mustTensor(t, ml.DTypeFloat32, []float64{1}, 1)}

	if err := WriteFile(filepath.Join(dir, "out.safetensors"), d, nil); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.safetensors" {
		t.Errorf("entries = %v, want only out.safetensors", entries)
	}

	if err := WriteFile(filepath.Join(dir, "missing", "out.safetensors"), d, nil); err == nil {
		t.Error("expected error for missing directory")
	}
}
