// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"fmt"

	"github.com/wirepack/wirepack/lib/codec"
)

// ToWireBinary encodes value like ToWire but as deterministic CBOR
// instead of JSON text. The logical tree is identical — envelopes are
// the same maps with the same fields — so the two forms are
// interchangeable record for record; the binary form is smaller and
// its bytes are a pure function of the value, which makes it the right
// input for result-cache keys.
func (r *Registry) ToWireBinary(value any, host string) ([]byte, error) {
	tree, err := r.encodeValue(value)
	if err != nil {
		return nil, err
	}
	if host != "" {
		tree = annotateHost(tree, host)
	}
	return codec.Marshal(tree)
}

// FromWireBinary decodes CBOR wire bytes produced by ToWireBinary,
// under the same deref policy as FromWire.
func (r *Registry) FromWireBinary(data []byte, deref bool) (any, error) {
	var raw any
	if err := codec.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid CBOR: %v", ErrMalformed, err)
	}
	return r.decodeValue(raw, deref)
}
