// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// maxNesting bounds how deep a decoded document may nest. Template
// files are two levels deep; anything near this limit is corrupt.
const maxNesting = 16

var encoder, decoder = buildModes()

func buildModes() (cbor.EncMode, cbor.DecMode) {
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeUnixMicro

	enc, err := encOptions.EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: building CBOR encoder: %v", err))
	}

	dec, err := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: maxNesting,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: building CBOR decoder: %v", err))
	}
	return enc, dec
}

// Marshal returns the deterministic CBOR encoding of v.
func Marshal(v any) ([]byte, error) {
	return encoder.Marshal(v)
}

// Unmarshal decodes data into v. Fields v does not declare are
// skipped; repeated map keys are an error.
func Unmarshal(data []byte, v any) error {
	return decoder.Unmarshal(data, v)
}
