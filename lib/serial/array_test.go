// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"path/filepath"
	"testing"

	"github.com/wirepack/wirepack/lib/blobstore"
)

func newArrayRegistry(t *testing.T) (*Registry, *blobstore.Store) {
	t.Helper()
	store, err := blobstore.Open(filepath.Join(t.TempDir(), "arrays.blobs"))
	if err != nil {
		t.Fatalf("opening blob store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return Merge(Base(), Arrays(store)), store
}

func sequentialInts(n int) Array {
	values := make([]int64, n)
	for i := range values {
		values[i] = int64(i)
	}
	return Int64Array(values)
}

func TestArrayEnvelopeCarriesOnlyTheKey(t *testing.T) {
	r, store := newArrayRegistry(t)
	array := sequentialInts(10)

	wire, err := r.ToWire(array, "")
	if err != nil {
		t.Fatalf("ToWire failed: %v", err)
	}

	envelope := envelopeOf(t, parseWire(t, wire))
	if envelope["class"] != ArrayClass {
		t.Errorf("class = %v, want %q", envelope["class"], ArrayClass)
	}
	if envelope["ref"] != true {
		t.Error("array envelope is not marked as a reference")
	}

	key, ok := envelope["data"].(string)
	if !ok {
		t.Fatalf("array data is %T, want a key string", envelope["data"])
	}
	if len(key) != blobstore.KeyLength {
		t.Errorf("key length %d, want %d", len(key), blobstore.KeyLength)
	}

	files, ok := envelope["files"].([]any)
	if !ok || len(files) != 1 || files[0] != store.ContainerPath() {
		t.Errorf("files = %v, want the container path %q", envelope["files"], store.ContainerPath())
	}

	// The payload itself lives in the store, not on the wire.
	parsed, err := blobstore.ParseKey(key)
	if err != nil {
		t.Fatalf("envelope key does not parse: %v", err)
	}
	payload, err := store.Get(parsed)
	if err != nil {
		t.Fatalf("payload missing from the store: %v", err)
	}
	if payload.DType != "int64" || len(payload.Data) != 80 {
		t.Errorf("stored payload dtype=%q size=%d, want int64 of 80 bytes", payload.DType, len(payload.Data))
	}
}

func TestArrayRoundTrip(t *testing.T) {
	r, _ := newArrayRegistry(t)
	array := sequentialInts(10)

	wire, err := r.ToWire(array, "")
	if err != nil {
		t.Fatalf("ToWire failed: %v", err)
	}

	decoded, err := r.FromWire(wire, true)
	if err != nil {
		t.Fatalf("FromWire failed: %v", err)
	}
	got, ok := decoded.(Array)
	if !ok {
		t.Fatalf("decoded = %T, want Array", decoded)
	}
	if !got.Equal(array) {
		t.Errorf("decoded array differs from the original")
	}

	values, err := got.Int64s()
	if err != nil {
		t.Fatalf("Int64s failed: %v", err)
	}
	for i, v := range values {
		if v != int64(i) {
			t.Fatalf("element %d = %d, want %d", i, v, i)
		}
	}
}

func TestArrayDecodesLazily(t *testing.T) {
	r, _ := newArrayRegistry(t)
	array := Float64Array([]float64{1.5, 2.5, 3.5})

	wire, err := r.ToWire(array, "")
	if err != nil {
		t.Fatalf("ToWire failed: %v", err)
	}

	decoded, err := r.FromWire(wire, false)
	if err != nil {
		t.Fatalf("FromWire failed: %v", err)
	}
	ref, ok := decoded.(*Ref)
	if !ok {
		t.Fatalf("decoded = %T, want *Ref", decoded)
	}

	resolved, err := ref.Resolve(r)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := resolved.(Array); !got.Equal(array) {
		t.Error("resolved array differs from the original")
	}
}

func TestArrayEncodingDeduplicates(t *testing.T) {
	r, store := newArrayRegistry(t)
	array := sequentialInts(100)

	first, err := r.ToWire(array, "")
	if err != nil {
		t.Fatalf("first ToWire failed: %v", err)
	}
	second, err := r.ToWire(array, "")
	if err != nil {
		t.Fatalf("second ToWire failed: %v", err)
	}
	if string(first) != string(second) {
		t.Error("encoding the same array twice produced different wire text")
	}
	if n, err := store.Len(); err != nil || n != 1 {
		t.Errorf("store holds %d entries (err %v), want 1 after duplicate encodes", n, err)
	}
}

func TestArrayDecodeMissingBlob(t *testing.T) {
	r, _ := newArrayRegistry(t)

	// A syntactically valid key that was never stored.
	ghost := blobstore.HashPayload(blobstore.Payload{DType: "int64", Shape: []int{1}, Data: []byte{9}})
	wire := `{"_wirepack":"1.0.0","type":"object","class":"` + ArrayClass + `","data":"` + ghost.String() + `","ref":true}`

	if _, err := r.FromWire([]byte(wire), true); err == nil {
		t.Error("decoding a reference to a missing blob succeeded")
	}
}

func TestArrayDecodeMalformedKey(t *testing.T) {
	r, _ := newArrayRegistry(t)
	wire := `{"_wirepack":"1.0.0","type":"object","class":"` + ArrayClass + `","data":"not-a-key","ref":true}`

	if _, err := r.FromWire([]byte(wire), true); err == nil {
		t.Error("decoding a malformed blob key succeeded")
	}
}

func TestFloat32ArrayRoundTrip(t *testing.T) {
	r, store := newArrayRegistry(t)
	array := Float32Array(make([]float32, 256))

	wire, err := r.ToWire(array, "")
	if err != nil {
		t.Fatalf("ToWire failed: %v", err)
	}
	decoded, err := r.FromWire(wire, true)
	if err != nil {
		t.Fatalf("FromWire failed: %v", err)
	}
	if got := decoded.(Array); !got.Equal(array) {
		t.Error("float32 array does not round-trip")
	}

	// float32 payloads take the byte-grouped compression path.
	keys, err := store.Keys()
	if err != nil || len(keys) != 1 {
		t.Fatalf("Keys = %v (err %v), want one entry", keys, err)
	}
	info, err := store.Stat(keys[0])
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Compression != blobstore.CompressionBG4LZ4 {
		t.Errorf("float32 payload stored with %s, want bg4_lz4", info.Compression)
	}
}
