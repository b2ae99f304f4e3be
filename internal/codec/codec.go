// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// Package codec provides the CBOR encoding used for streaming values between
// a collector process and its re-executed namespace children.
package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	// Values decoded into "any" must end up as map[string]any instead of
	// CBOR's default map[any]any, otherwise feature values coming back from
	// a child wouldn't compare equal to the very same values produced
	// in-process.
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// RawMessage is an encoded CBOR value whose decoding is deferred until the
// receiver knows the concrete Go type to decode into.
type RawMessage = cbor.RawMessage

// Encoder writes a stream of CBOR data items.
type Encoder = cbor.Encoder

// Decoder reads a stream of CBOR data items.
type Decoder = cbor.Decoder

// Marshal encodes v.
func Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }

// NewEncoder returns a stream encoder writing to w.
func NewEncoder(w io.Writer) *Encoder { return encMode.NewEncoder(w) }

// NewDecoder returns a stream decoder reading from r.
func NewDecoder(r io.Reader) *Decoder { return decMode.NewDecoder(r) }
