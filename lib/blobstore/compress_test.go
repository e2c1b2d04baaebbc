// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"bytes"
	"crypto/rand"
	"testing"
)

// compressibleData returns a buffer with enough repetition that every
// algorithm shrinks it.
func compressibleData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i / 64)
	}
	return data
}

func TestCompressRoundTrip(t *testing.T) {
	data := compressibleData(4096)

	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd, CompressionBG4LZ4} {
		t.Run(tag.String(), func(t *testing.T) {
			stored, actualTag, err := compressWithFallback(data, tag)
			if err != nil {
				t.Fatalf("compress failed: %v", err)
			}
			if actualTag != tag {
				t.Errorf("fallback engaged on compressible data: got tag %s, want %s", actualTag, tag)
			}
			if tag != CompressionNone && len(stored) >= len(data) {
				t.Errorf("compressed size %d not smaller than input %d", len(stored), len(data))
			}

			restored, err := decompress(stored, actualTag, len(data))
			if err != nil {
				t.Fatalf("decompress failed: %v", err)
			}
			if !bytes.Equal(restored, data) {
				t.Error("decompressed data does not match original")
			}
		})
	}
}

func TestCompressIncompressibleFallsBack(t *testing.T) {
	data := make([]byte, 4096)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("generating random data: %v", err)
	}

	for _, tag := range []CompressionTag{CompressionLZ4, CompressionZstd, CompressionBG4LZ4} {
		t.Run(tag.String(), func(t *testing.T) {
			stored, actualTag, err := compressWithFallback(data, tag)
			if err != nil {
				t.Fatalf("compress failed: %v", err)
			}
			if actualTag != CompressionNone {
				t.Fatalf("random data compressed with %s, expected fallback to none", actualTag)
			}
			if !bytes.Equal(stored, data) {
				t.Error("fallback did not store the raw bytes")
			}
		})
	}
}

func TestBG4TransposeRoundTrip(t *testing.T) {
	// Cover aligned and remainder lengths.
	for _, size := range []int{0, 1, 3, 4, 5, 16, 17, 18, 19, 1024} {
		data := make([]byte, size)
		for i := range data {
			data[i] = byte(i * 7)
		}
		restored := bg4Untranspose(bg4Transpose(data))
		if !bytes.Equal(restored, data) {
			t.Errorf("size %d: transpose round trip mismatch", size)
		}
	}
}

func TestBG4TransposeGroupsBytes(t *testing.T) {
	data := []byte{0, 1, 2, 3, 10, 11, 12, 13}
	want := []byte{0, 10, 1, 11, 2, 12, 3, 13}
	got := bg4Transpose(data)
	if !bytes.Equal(got, want) {
		t.Errorf("bg4Transpose = %v, want %v", got, want)
	}
}

func TestCompressionTagStrings(t *testing.T) {
	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd, CompressionBG4LZ4} {
		parsed, err := ParseCompressionTag(tag.String())
		if err != nil {
			t.Errorf("ParseCompressionTag(%q) failed: %v", tag.String(), err)
			continue
		}
		if parsed != tag {
			t.Errorf("ParseCompressionTag(%q) = %v, want %v", tag.String(), parsed, tag)
		}
	}
	if _, err := ParseCompressionTag("gzip"); err == nil {
		t.Error("ParseCompressionTag accepted an unknown name")
	}
}

func TestCompressionForDType(t *testing.T) {
	if got := compressionForDType("float32"); got != CompressionBG4LZ4 {
		t.Errorf("float32 selects %s, want bg4_lz4", got)
	}
	if got := compressionForDType("int64"); got != CompressionLZ4 {
		t.Errorf("int64 selects %s, want lz4", got)
	}
}
