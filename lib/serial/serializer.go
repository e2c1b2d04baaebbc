// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import "reflect"

// Kind tags how an envelope's data was produced. The tag is stored in
// the envelope's "type" field; plain JSON-native data carries no
// envelope and therefore no tag.
type Kind string

const (
	// KindObject marks data produced by a type-specific round trip,
	// typically a compact string form.
	KindObject Kind = "object"

	// KindRecord marks structurally auto-derived data: a mapping from
	// exported field name to encoded field value.
	KindRecord Kind = "record"

	// KindOpaque marks a generic Go-native object dump in reversible
	// text encoding, used only when no specific serializer applies.
	KindOpaque Kind = "opaque"
)

// validKind reports whether a wire kind tag is one the decoder knows.
func validKind(k Kind) bool {
	switch k {
	case KindObject, KindRecord, KindOpaque:
		return true
	}
	return false
}

// Serializer is the encode/decode unit for one type. Implementations
// are constructed once at registry-build time, are immutable
// thereafter, and are shared by all callers; they may hold their own
// configuration (a blob-store handle, say) but no per-call state.
type Serializer interface {
	// Kind is the envelope tag for data this serializer produces.
	Kind() Kind

	// Encode produces the envelope payload for value. The returned
	// data must itself be encodable: JSON-native, or a value some
	// serializer in the registry handles. Ref and file metadata is
	// attached exclusively through Pack.
	Encode(value any) (Packed, error)

	// Decode reconstructs a value from data previously produced by
	// Encode. typ is the registered Go type for the envelope's class
	// name (nil when the serializer was reached through the registry
	// default). Decode sees exactly the data Encode produced and
	// nothing else of the envelope.
	Decode(typ reflect.Type, data any) (any, error)
}

// Packed is a serializer's encoded output plus wire metadata. Fields
// are unexported: Pack is the only way to attach ref or file
// annotations, so the envelope codec can trust them.
type Packed struct {
	data  any
	ref   bool
	files []string
}

// PackOption annotates a Packed value.
type PackOption func(*Packed)

// WithRef marks the envelope for deferred reconstruction: decoders
// return a *Ref placeholder unless dereferencing is requested.
func WithRef() PackOption {
	return func(p *Packed) { p.ref = true }
}

// WithFiles records files the encoded value depends on (a blob
// container, typically) so the caller can ship them alongside the
// record.
func WithFiles(paths ...string) PackOption {
	return func(p *Packed) { p.files = append(p.files, paths...) }
}

// Pack wraps a serializer's data payload with optional metadata.
func Pack(data any, opts ...PackOption) Packed {
	p := Packed{data: data}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Data returns the encoded payload.
func (p Packed) Data() any { return p.data }

// Ref reports whether the envelope defers reconstruction.
func (p Packed) Ref() bool { return p.ref }

// Files returns the recorded file dependencies.
func (p Packed) Files() []string { return p.files }
