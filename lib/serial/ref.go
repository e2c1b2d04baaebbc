// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package serial

// Ref is the placeholder produced when a deferred envelope
// ("ref": true) is decoded without dereferencing. It holds the raw
// envelope and nothing else — in particular, the referenced
// serializer's Decode has not run and no blob has been fetched. A Ref
// re-encodes to exactly the envelope it wraps, so it can travel
// through further ToWire calls untouched.
type Ref struct {
	rec map[string]any
}

// Envelope returns the raw envelope the placeholder wraps.
func (r *Ref) Envelope() map[string]any {
	return r.rec
}

// Class returns the envelope's class name without resolving anything.
func (r *Ref) Class() string {
	class, _ := r.rec["class"].(string)
	return class
}

// Resolve materializes the referenced value using reg, as if the
// envelope had been decoded with dereferencing enabled.
func (r *Ref) Resolve(reg *Registry) (any, error) {
	return reg.decodeEnvelope(r.rec, true)
}
