// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"reflect"
	"testing"

	"github.com/wirepack/wirepack/lib/codec"
)

func TestBinaryStringRoundTrip(t *testing.T) {
	r := starRegistry()
	sun := star{class: "G2V"}

	wire, err := r.ToWireBinary(sun, "")
	if err != nil {
		t.Fatalf("ToWireBinary failed: %v", err)
	}

	decoded, err := r.FromWireBinary(wire, false)
	if err != nil {
		t.Fatalf("FromWireBinary failed: %v", err)
	}
	if decoded != sun {
		t.Errorf("decoded = %v, want %v", decoded, sun)
	}
}

func TestBinaryRecordRoundTrip(t *testing.T) {
	r := Base()
	r.RegisterRecord(retryPolicy{})
	original := retryPolicy{Max: 4, Backoff: 2.0}

	wire, err := r.ToWireBinary(original, "")
	if err != nil {
		t.Fatalf("ToWireBinary failed: %v", err)
	}
	decoded, err := r.FromWireBinary(wire, false)
	if err != nil {
		t.Fatalf("FromWireBinary failed: %v", err)
	}
	if got := decoded.(retryPolicy); !reflect.DeepEqual(got, original) {
		t.Errorf("decoded = %+v, want %+v", got, original)
	}
}

func TestBinaryRefDefersDecoding(t *testing.T) {
	r, counter := refRegistry()

	wire, err := r.ToWireBinary(deferred{}, "")
	if err != nil {
		t.Fatalf("ToWireBinary failed: %v", err)
	}

	decoded, err := r.FromWireBinary(wire, false)
	if err != nil {
		t.Fatalf("FromWireBinary failed: %v", err)
	}
	ref, ok := decoded.(*Ref)
	if !ok {
		t.Fatalf("decoded = %T, want *Ref", decoded)
	}
	if counter.decodes != 0 {
		t.Errorf("serializer ran %d times while producing a placeholder, want 0", counter.decodes)
	}

	value, err := ref.Resolve(r)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if value != "deferred payload" {
		t.Errorf("resolved value = %v, want the deferred payload", value)
	}
}

// The binary form is deterministic: byte-identical output for the same
// input, which is what makes it usable as a cache key.
func TestBinaryDeterministic(t *testing.T) {
	r := starRegistry()
	value := map[string]any{
		"zeta":  star{class: "O9"},
		"alpha": star{class: "G2V"},
		"count": 2,
	}

	first, err := r.ToWireBinary(value, "host-a")
	if err != nil {
		t.Fatalf("ToWireBinary failed: %v", err)
	}
	second, err := r.ToWireBinary(value, "host-a")
	if err != nil {
		t.Fatalf("ToWireBinary failed: %v", err)
	}
	if string(first) != string(second) {
		t.Error("binary wire bytes differ between identical encodes")
	}
}

func TestBinaryHostAnnotation(t *testing.T) {
	r := starRegistry()

	wire, err := r.ToWireBinary(star{class: "M5V"}, "worker-7")
	if err != nil {
		t.Fatalf("ToWireBinary failed: %v", err)
	}

	// Inspect the raw envelope tree underneath the registry.
	var tree map[string]any
	if err := codec.Unmarshal(wire, &tree); err != nil {
		t.Fatalf("wire output is not valid CBOR: %v", err)
	}
	if tree["host"] != "worker-7" {
		t.Errorf("host = %v, want worker-7", tree["host"])
	}

	decoded, err := r.FromWireBinary(wire, false)
	if err != nil {
		t.Fatalf("FromWireBinary failed: %v", err)
	}
	if decoded != (star{class: "M5V"}) {
		t.Errorf("decoded = %v, want the star back", decoded)
	}
}

func TestBinaryRejectsGarbage(t *testing.T) {
	r := Base()
	if _, err := r.FromWireBinary([]byte{0xff, 0x00, 0x13, 0x37}, false); err == nil {
		t.Error("FromWireBinary accepted garbage bytes")
	}
}
