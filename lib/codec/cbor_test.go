// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"reflect"
	"testing"
)

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{
		"zebra":  1,
		"apple":  []any{"x", "y"},
		"middle": map[string]any{"b": 2, "a": 1},
	}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("repeated Marshal of the same map produced different bytes")
		}
	}
}

func TestUnmarshalProducesStringKeyedMaps(t *testing.T) {
	data, err := Marshal(map[string]any{"outer": map[string]any{"inner": 1}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var tree any
	if err := Unmarshal(data, &tree); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	outer, ok := tree.(map[string]any)
	if !ok {
		t.Fatalf("decoded tree is %T, want map[string]any", tree)
	}
	if _, ok := outer["outer"].(map[string]any); !ok {
		t.Fatalf("nested map is %T, want map[string]any", outer["outer"])
	}
}

func TestRoundTrip(t *testing.T) {
	original := map[string]any{
		"name":   "task-7",
		"count":  uint64(3),
		"weight": 1.25,
		"tags":   []any{"a", "b"},
		"flag":   true,
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(decoded, original) {
		t.Errorf("decoded = %v, want %v", decoded, original)
	}
}

func TestStreamRoundTrip(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, value := range []any{"first", uint64(2), map[string]any{"third": true}} {
		if err := encoder.Encode(value); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	var first any
	if err := decoder.Decode(&first); err != nil || first != "first" {
		t.Fatalf("first Decode = %v (err %v), want \"first\"", first, err)
	}
	var second any
	if err := decoder.Decode(&second); err != nil || second != uint64(2) {
		t.Fatalf("second Decode = %v (err %v), want 2", second, err)
	}
	var third any
	if err := decoder.Decode(&third); err != nil {
		t.Fatalf("third Decode failed: %v", err)
	}
	if m, ok := third.(map[string]any); !ok || m["third"] != true {
		t.Fatalf("third Decode = %v, want {third: true}", third)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var out any
	if err := Unmarshal([]byte{0xff, 0xff, 0xff}, &out); err == nil {
		t.Error("Unmarshal accepted garbage bytes")
	}
}
