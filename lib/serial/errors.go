// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import "errors"

// Error sentinels. All are configuration or data errors that propagate
// to the caller of ToWire/FromWire; nothing here is retried
// internally. Check with errors.Is.
var (
	// ErrNoSerializer means no serializer could be resolved for a
	// type or class name and no default is configured. This is a
	// registry configuration error, raised at resolve time.
	ErrNoSerializer = errors.New("no serializer registered")

	// ErrMalformed means wire input is structurally invalid: missing
	// class field, unknown kind tag, or a data field that does not
	// match the serializer's expectation. Decoding aborts without
	// constructing a partial value.
	ErrMalformed = errors.New("malformed envelope")

	// ErrRoundTrip means a custom string round trip failed to parse
	// data it previously produced.
	ErrRoundTrip = errors.New("string round trip failed")
)
