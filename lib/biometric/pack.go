// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package biometric

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pierrec/lz4/v4"
)

// Payload packing identifiers stored in the template file.
const (
	packingNone   = "none"
	packingBG4LZ4 = "bg4_lz4"
)

// packTemplates serializes the templates as little-endian float32,
// groups the bytes by position and LZ4-compresses the result. Returns
// the packing used; incompressible payloads are stored raw.
func packTemplates(templates []Template) ([]byte, string, error) {
	raw := make([]byte, 0, len(templates)*TemplateLength*4)
	for _, template := range templates {
		for _, value := range template {
			raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(value))
		}
	}

	grouped := groupBytes(raw)
	destination := make([]byte, lz4.CompressBlockBound(len(grouped)))
	written, err := lz4.CompressBlock(grouped, destination, nil)
	if err != nil {
		return nil, "", fmt.Errorf("lz4 compress: %w", err)
	}
	if written == 0 || written >= len(raw) {
		return raw, packingNone, nil
	}
	return destination[:written], packingBG4LZ4, nil
}

// unpackTemplates reverses packTemplates.
func unpackTemplates(payload []byte, packing string, count, length int) ([]Template, error) {
	size := count * length * 4
	var raw []byte
	switch packing {
	case packingNone:
		raw = payload
	case packingBG4LZ4:
		grouped := make([]byte, size)
		read, err := lz4.UncompressBlock(payload, grouped)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, want %d", read, size)
		}
		raw = ungroupBytes(grouped)
	default:
		return nil, fmt.Errorf("unknown template packing %q", packing)
	}
	if len(raw) != size {
		return nil, fmt.Errorf("template payload is %d bytes, want %d", len(raw), size)
	}

	templates := make([]Template, count)
	for i := range templates {
		template := make(Template, length)
		offset := i * length * 4
		for j := range template {
			template[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[offset+j*4:]))
		}
		templates[i] = template
	}
	return templates, nil
}

// groupBytes places byte 0 of every float first, then every byte 1,
// and so on. len(data) is always a multiple of four here.
func groupBytes(data []byte) []byte {
	groups := len(data) / 4
	output := make([]byte, len(data))
	for i := 0; i < groups; i++ {
		output[i] = data[i*4]
		output[groups+i] = data[i*4+1]
		output[groups*2+i] = data[i*4+2]
		output[groups*3+i] = data[i*4+3]
	}
	return output
}

func ungroupBytes(data []byte) []byte {
	groups := len(data) / 4
	output := make([]byte, len(data))
	for i := 0; i < groups; i++ {
		output[i*4] = data[i]
		output[i*4+1] = data[groups+i]
		output[i*4+2] = data[groups*2+i]
		output[i*4+3] = data[groups*3+i]
	}
	return output
}
