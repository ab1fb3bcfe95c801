// reader.go - safetensors Dateien in ein ml.Dictionary laden
// Hauptfunktionen: ReadFile, Read, decode
package safetensors

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"

	"github.com/loramerge/loramerge/ml"
)

// ReadFile laedt alle Tensoren einer safetensors-Datei
func ReadFile(path string) (ml.Dictionary, map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}

	return Read(f, info.Size())
}

// Read laedt alle Tensoren aus r. size ist die Gesamtgroesse der Datei;
// Tensoren, deren Byte-Bereich ueber size hinausgeht, werden abgelehnt,
// bevor Speicher dafuer angefordert wird.
func Read(r io.ReaderAt, size int64) (ml.Dictionary, map[string]string, error) {
	h, err := ReadHeader(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, nil, err
	}

	keys := h.Keys()
	for _, name := range keys {
		if end := h.Tensors[name].DataOffsets[1]; end > size-h.DataOffset {
			return nil, nil, fmt.Errorf("tensor %q: %w: needs %d data bytes, file has %d", name, ErrTruncated, end, size-h.DataOffset)
		}
	}

	d := make(ml.Dictionary, len(h.Tensors))
	for _, name := range keys {
		info := h.Tensors[name]
		begin, end := info.DataOffsets[0], info.DataOffsets[1]

		bts := make([]byte, end-begin)
		if _, err := r.ReadAt(bts, h.DataOffset+begin); err != nil && !(errors.Is(err, io.EOF) && len(bts) == 0) {
			return nil, nil, fmt.Errorf("read tensor %q: %w", name, err)
		}

		dtype, _ := ml.ParseDType(info.DType)
		t, err := ml.NewTensor(dtype, decode(dtype, bts), info.Shape...)
		if err != nil {
			return nil, nil, fmt.Errorf("tensor %q: %w", name, err)
		}

		d[name] = t
	}

	return d, h.Metadata, nil
}

// decode wandelt little-endian Rohdaten in float64-Werte um
func decode(dtype ml.DType, bts []byte) []float64 {
	n := len(bts) / max(dtype.Size(), 1)
	out := make([]float64, n)

	switch dtype {
	case ml.DTypeFloat64:
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(bts[i*8:]))
		}
	case ml.DTypeFloat32:
		for i := range out {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(bts[i*4:])))
		}
	case ml.DTypeFloat16:
		for i := range out {
			out[i] = float64(float16.Frombits(binary.LittleEndian.Uint16(bts[i*2:])).Float32())
		}
	case ml.DTypeBfloat16:
		for i, f := range bfloat16.DecodeFloat32(bts) {
			out[i] = float64(f)
		}
	case ml.DTypeInt64:
		for i := range out {
			out[i] = float64(int64(binary.LittleEndian.Uint64(bts[i*8:])))
		}
	case ml.DTypeInt32:
		for i := range out {
			out[i] = float64(int32(binary.LittleEndian.Uint32(bts[i*4:])))
		}
	case ml.DTypeInt16:
		for i := range out {
			out[i] = float64(int16(binary.LittleEndian.Uint16(bts[i*2:])))
		}
	case ml.DTypeInt8:
		for i := range out {
			out[i] = float64(int8(bts[i]))
		}
	case ml.DTypeUint8, ml.DTypeBool:
		for i := range out {
			out[i] = float64(bts[i])
		}
	}

	return out
}
