package models

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/sitekit/viewscope/internal/codec"
)

// CborMarshaler encodes records deterministically so that two snapshots of
// the same data are byte-identical.
type CborMarshaler struct {
}

func (c CborMarshaler) Marshal(v any) ([]byte, error) {
	return getCborEncoder().Marshal(v)
}

func (c CborMarshaler) NewEncoder(w io.Writer) codec.Encoder {
	return getCborEncoder().NewEncoder(w)
}

type CborUnmarshaler struct {
}

func (c CborUnmarshaler) Unmarshal(data []byte, dst any) error {
	return getCborDecoder().Unmarshal(data, dst)
}

func (c CborUnmarshaler) NewDecoder(r io.Reader) codec.Decoder {
	return getCborDecoder().NewDecoder(r)
}

func getCborEncoder() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func getCborDecoder() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}
