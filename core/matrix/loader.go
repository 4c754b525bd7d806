package matrix

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/YuminosukeSato/learnkit/pkg/errors"
)

// ValueType is the element encoding of a binary matrix file.
type ValueType int

const (
	// Float64 is an 8-byte little-endian IEEE-754 value.
	Float64 ValueType = iota
	// UInt8 is a single unsigned byte.
	UInt8
)

func (t ValueType) size() int {
	switch t {
	case Float64:
		return 8
	case UInt8:
		return 1
	default:
		return 0
	}
}

func (t ValueType) String() string {
	switch t {
	case Float64:
		return "float64"
	case UInt8:
		return "uint8"
	default:
		return "unknown"
	}
}

func readValues(r io.Reader, t ValueType, dst []float64) error {
	size := t.size()
	if size == 0 {
		return errors.NewValidationError("valueType", "must be Float64 or UInt8", int(t))
	}
	raw := make([]byte, size*len(dst))
	if _, err := io.ReadFull(r, raw); err != nil {
		return errors.Wrapf(err, "failed to read %d %s values", len(dst), t)
	}
	switch t {
	case Float64:
		for i := range dst {
			dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
		}
	case UInt8:
		for i, b := range raw {
			dst[i] = float64(b)
		}
	}
	return nil
}

// LoadBinary reads a row-major rows × columns matrix of valueType elements
// from r. When outputReader is non-nil it supplies rows outputType values
// for the output vector.
func LoadBinary(r io.Reader, valueType ValueType, outputReader io.Reader, outputType ValueType, rows, columns int, opts ...Option) (*Matrix, error) {
	if err := validateShape("LoadBinary", rows, columns); err != nil {
		return nil, err
	}
	features := make([]float64, rows*columns)
	if err := readValues(r, valueType, features); err != nil {
		return nil, err
	}
	var output []float64
	if outputReader != nil {
		output = make([]float64, rows)
		if err := readValues(outputReader, outputType, output); err != nil {
			return nil, errors.Wrap(err, "output vector")
		}
		opts = append(opts, WithOutputVector())
	}
	return New(rows, columns, func(x, y []float64) bool {
		copy(x, features)
		copy(y, output)
		return true
	}, opts...)
}
