// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

type sampleRecord struct {
	Version int               `cbor:"version"`
	Name    string            `cbor:"name"`
	Payload []byte            `cbor:"payload,omitempty"`
	Labels  map[string]string `cbor:"labels,omitempty"`
}

func TestMarshalDeterministic(t *testing.T) {
	record := sampleRecord{
		Version: 1,
		Name:    "templates",
		Labels:  map[string]string{"zeta": "1", "alpha": "2", "mid": "3"},
	}

	first, err := Marshal(record)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Marshal(record)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("Marshal output differs between calls with map fields")
		}
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	type newer struct {
		Version int    `cbor:"version"`
		Name    string `cbor:"name"`
		Extra   string `cbor:"extra"`
	}
	data, err := Marshal(newer{Version: 2, Name: "templates", Extra: "future"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Version != 2 || decoded.Name != "templates" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var decoded sampleRecord
	if err := Unmarshal([]byte{0xff, 0x00, 0x13}, &decoded); err == nil {
		t.Error("Unmarshal accepted invalid CBOR")
	}
}

func TestUnmarshalRejectsDuplicateKeys(t *testing.T) {
	// {"name": "a", "name": "b"}
	data := []byte{0xa2, 0x64, 'n', 'a', 'm', 'e', 0x61, 'a', 0x64, 'n', 'a', 'm', 'e', 0x61, 'b'}
	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err == nil {
		t.Errorf("Unmarshal accepted duplicate keys: %+v", decoded)
	}
}
