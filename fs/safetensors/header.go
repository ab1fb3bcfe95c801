// header.go - safetensors Header lesen
//
// Enthaelt:
// - ReadHeader: liest Laengenpraefix und JSON-Header ohne Tensordaten
// - TensorInfo: dtype, shape und Byte-Bereich eines Tensors
package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/loramerge/loramerge/ml"
)

const metadataKey = "__metadata__"

// maxHeaderSize begrenzt den JSON-Header, damit kaputte Dateien
// keinen riesigen Puffer anfordern
const maxHeaderSize = 100 << 20

var (
	ErrHeaderTooLarge = errors.New("safetensors header too large")
	ErrInvalidOffsets = errors.New("invalid tensor data offsets")
	ErrTruncated      = errors.New("tensor data truncated")
)

// TensorInfo beschreibt einen Tensor im Header
type TensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Header ist der geparste safetensors-Header
type Header struct {
	Metadata map[string]string
	Tensors  map[string]TensorInfo

	// DataOffset ist die Dateiposition, ab der die Tensordaten beginnen
	DataOffset int64
}

// Keys gibt die Tensor-Namen sortiert zurueck
func (h *Header) Keys() []string {
	keys := make([]string, 0, len(h.Tensors))
	for k := range h.Tensors {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ReadHeader liest den Header aus r. r steht danach am Anfang der Tensordaten.
func ReadHeader(r io.Reader) (*Header, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read header length: %w", err)
	}

	if n > maxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, n)
	}

	bts := make([]byte, n)
	if _, err := io.ReadFull(r, bts); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(bts, &raw); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	h := Header{
		Metadata:   make(map[string]string),
		Tensors:    make(map[string]TensorInfo, len(raw)),
		DataOffset: int64(8 + n),
	}

	for k, v := range raw {
		if k == metadataKey {
			if err := json.Unmarshal(v, &h.Metadata); err != nil {
				return nil, fmt.Errorf("parse metadata: %w", err)
			}
			continue
		}

		var info TensorInfo
		if err := json.Unmarshal(v, &info); err != nil {
			return nil, fmt.Errorf("parse tensor %q: %w", k, err)
		}

		if err := info.validate(); err != nil {
			return nil, fmt.Errorf("tensor %q: %w", k, err)
		}

		h.Tensors[k] = info
	}

	return &h, nil
}

func (info TensorInfo) validate() error {
	dtype, err := ml.ParseDType(info.DType)
	if err != nil {
		return err
	}

	// Produkt in Bytes, ohne int64-Ueberlauf
	n := int64(dtype.Size())
	for _, d := range info.Shape {
		if d < 0 {
			return fmt.Errorf("negative dimension in shape %v", info.Shape)
		}
		if d > 0 && n > math.MaxInt64/int64(d) {
			return fmt.Errorf("%w: shape %v overflows", ErrInvalidOffsets, info.Shape)
		}
		n *= int64(d)
	}

	begin, end := info.DataOffsets[0], info.DataOffsets[1]
	if begin < 0 || end < begin || end-begin != n {
		return fmt.Errorf("%w: [%d, %d) for %s%v", ErrInvalidOffsets, begin, end, info.DType, info.Shape)
	}

	return nil
}
