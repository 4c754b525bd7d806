package model

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/YuminosukeSato/learnkit/pkg/errors"
)

// MaxParameters bounds the length prefix accepted by ReadParameters.
const MaxParameters = 1 << 28

// WriteParameters はパラメータバッファをwに書き出す
//
// 形式: uint64 の要素数（リトルエンディアン）に続いて各要素の IEEE-754
// float64（リトルエンディアン）。
//
// 使用例:
//
//	params, _ := reg.ExportParameters()
//	err := model.WriteParameters(f, params)
func WriteParameters(w io.Writer, params []float64) error {
	buf := make([]byte, 8+8*len(params))
	binary.LittleEndian.PutUint64(buf, uint64(len(params)))
	for i, v := range params {
		binary.LittleEndian.PutUint64(buf[8+8*i:], math.Float64bits(v))
	}
	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, "failed to write parameters")
	}
	return nil
}

// ReadParameters はWriteParametersで書き出したバッファを読み込む
func ReadParameters(r io.Reader) ([]float64, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, errors.Wrap(err, "failed to read parameter count")
	}
	n := binary.LittleEndian.Uint64(header[:])
	if n > MaxParameters {
		return nil, errors.NewValidationError("parameters", "length prefix exceeds MaxParameters", n)
	}

	raw := make([]byte, 8*n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrapf(err, "failed to read %d parameters", n)
	}
	params := make([]float64, n)
	for i := range params {
		params[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return params, nil
}
