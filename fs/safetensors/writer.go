// writer.go - ml.Dictionary als safetensors schreiben
//
// Enthaelt:
// - Write: Header (8-Byte-Laenge + JSON) und Tensordaten in sortierter Reihenfolge
// - WriteFile: atomares Schreiben ueber Temp-Datei und Rename
// - encode: float64-Werte in den Ziel-DType umwandeln
package safetensors

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/d4l3k/go-bfloat16"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"github.com/x448/float16"

	"github.com/loramerge/loramerge/ml"
)

// Write schreibt d mit optionalen Metadaten nach w
func Write(w io.Writer, d ml.Dictionary, metadata map[string]string) error {
	keys := d.Keys()

	// __metadata__ zuerst, danach Tensoren in Offset-Reihenfolge
	header := orderedmap.New[string, any]()
	if len(metadata) > 0 {
		header.Set(metadataKey, metadata)
	}

	var offset int64
	for _, k := range keys {
		t := d[k]
		shape := t.Shape()
		if shape == nil {
			shape = []int{}
		}

		size := int64(t.Bytes())
		header.Set(k, TensorInfo{
			DType:       t.DType().String(),
			Shape:       shape,
			DataOffsets: [2]int64{offset, offset + size},
		})
		offset += size
	}

	bts, err := json.Marshal(header)
	if err != nil {
		return err
	}

	// Header auf 8 Bytes ausrichten
	if r := len(bts) % 8; r != 0 {
		bts = append(bts, bytes.Repeat([]byte(" "), 8-r)...)
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(bts))); err != nil {
		return err
	}

	if _, err := bw.Write(bts); err != nil {
		return err
	}

	for _, k := range keys {
		if _, err := bw.Write(encode(d[k])); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteFile schreibt atomar nach path. Bei einem Fehler bleibt keine
// (teilweise geschriebene) Datei zurueck.
func WriteFile(path string, d ml.Dictionary, metadata map[string]string) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if err = Write(f, d, metadata); err != nil {
		return err
	}

	if err = f.Close(); err != nil {
		return err
	}

	return os.Rename(f.Name(), path)
}

func encode(t *ml.Tensor) []byte {
	dtype := t.DType()
	src := t.Floats()
	bts := make([]byte, len(src)*dtype.Size())

	switch dtype {
	case ml.DTypeFloat64:
		for i, v := range src {
			binary.LittleEndian.PutUint64(bts[i*8:], math.Float64bits(v))
		}
	case ml.DTypeFloat32:
		for i, v := range src {
			binary.LittleEndian.PutUint32(bts[i*4:], math.Float32bits(float32(v)))
		}
	case ml.DTypeFloat16:
		for i, v := range src {
			binary.LittleEndian.PutUint16(bts[i*2:], float16.Fromfloat32(float32(v)).Bits())
		}
	case ml.DTypeBfloat16:
		f32s := make([]float32, len(src))
		for i, v := range src {
			f32s[i] = float32(v)
		}
		copy(bts, bfloat16.EncodeFloat32(f32s))
	case ml.DTypeInt64:
		for i, v := range src {
			binary.LittleEndian.PutUint64(bts[i*8:], uint64(int64(math.Round(v))))
		}
	case ml.DTypeInt32:
		for i, v := range src {
			binary.LittleEndian.PutUint32(bts[i*4:], uint32(int32(math.Round(v))))
		}
	case ml.DTypeInt16:
		for i, v := range src {
			binary.LittleEndian.PutUint16(bts[i*2:], uint16(int16(math.Round(v))))
		}
	case ml.DTypeInt8:
		for i, v := range src {
			bts[i] = byte(int8(math.Round(v)))
		}
	case ml.DTypeUint8:
		for i, v := range src {
			bts[i] = uint8(math.Round(v))
		}
	case ml.DTypeBool:
		for i, v := range src {
			if v != 0 {
				bts[i] = 1
			}
		}
	}

	return bts
}
