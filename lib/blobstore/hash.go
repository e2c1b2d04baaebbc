// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Key is a 32-byte BLAKE3 digest identifying a stored payload. The
// digest covers the element type, the shape, and the raw bytes of the
// payload, so equal payloads always produce equal keys.
type Key [32]byte

// KeyLength is the length of a formatted key: 64 lowercase hex
// characters. Hex is a fixed, URL-safe alphabet, so keys can appear in
// wire envelopes, filenames, and URLs without escaping.
const KeyLength = 64

// blobDomainKey is the 32-byte key for BLAKE3 keyed hashing. Domain
// separation keeps blob keys distinct from any other BLAKE3 use of the
// same bytes. The value is a fixed protocol constant — changing it
// invalidates every existing key. The bytes are the ASCII encoding of
// the domain name, zero-padded to 32 bytes, so the key is readable in
// hex dumps.
var blobDomainKey = [32]byte{
	'w', 'i', 'r', 'e', 'p', 'a', 'c', 'k', '.', 'b', 'l', 'o', 'b',
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// HashPayload computes the content key of a payload. The digest input
// is, in fixed order: the element type string (length-prefixed), the
// shape (rank-prefixed dimension list), and the raw bytes. The field
// order and the length prefixes are part of the key's stability
// contract: changing any single byte of the data, any dimension, or
// the type tag produces a different key, and no two distinct
// (dtype, shape, bytes) triples share a digest input.
func HashPayload(p Payload) Key {
	hasher, err := blake3.NewKeyed(blobDomainKey[:])
	if err != nil {
		// NewKeyed fails only for a wrong key length, which the
		// fixed-size array rules out.
		panic("blobstore: BLAKE3 keyed hash initialization failed: " + err.Error())
	}

	var prefix [binary.MaxVarintLen64]byte

	n := binary.PutUvarint(prefix[:], uint64(len(p.DType)))
	hasher.Write(prefix[:n])
	hasher.Write([]byte(p.DType))

	n = binary.PutUvarint(prefix[:], uint64(len(p.Shape)))
	hasher.Write(prefix[:n])
	for _, dim := range p.Shape {
		n = binary.PutUvarint(prefix[:], uint64(dim))
		hasher.Write(prefix[:n])
	}

	hasher.Write(p.Data)

	var key Key
	copy(key[:], hasher.Sum(nil))
	return key
}

// String returns the canonical formatted form of the key.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// ParseKey parses a 64-character hex string into a Key.
func ParseKey(s string) (Key, error) {
	var key Key
	if len(s) != KeyLength {
		return key, fmt.Errorf("blob key is %d characters, want %d", len(s), KeyLength)
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("parsing blob key: %w", err)
	}
	copy(key[:], decoded)
	return key, nil
}
