// Package decoder turns opaque relay frames into structured messages.
//
// A frame is a zlib-compressed JSON document. Decoding is pure: a bad frame
// yields a DecodeError that is fatal for that frame only, never for the
// pipeline.
package decoder

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"

	"github.com/evedata/market-firehose/internal/model"
)

// DecodeError describes a frame that could not be decoded.
type DecodeError struct {
	Stage string // "inflate", "parse" or "shape"
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode inflates and parses a single frame.
//
// Numeric row values are kept as json.Number so the schema validator can
// distinguish integers from decimals; encoding/json would otherwise collapse
// everything to float64.
func Decode(frame []byte) (*model.Message, error) {
	zr, err := zlib.NewReader(bytes.NewReader(frame))
	if err != nil {
		return nil, &DecodeError{Stage: "inflate", Err: err}
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, &DecodeError{Stage: "inflate", Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var msg model.Message
	if err := dec.Decode(&msg); err != nil {
		return nil, &DecodeError{Stage: "parse", Err: err}
	}

	if msg.ResultType == "" {
		return nil, &DecodeError{Stage: "shape", Err: fmt.Errorf("missing resultType")}
	}
	if msg.Columns == nil {
		return nil, &DecodeError{Stage: "shape", Err: fmt.Errorf("missing columns")}
	}
	if msg.Rowsets == nil {
		return nil, &DecodeError{Stage: "shape", Err: fmt.Errorf("missing rowsets")}
	}

	return &msg, nil
}
