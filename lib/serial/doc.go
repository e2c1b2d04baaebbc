// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package serial converts in-memory values to self-describing wire
// records and back. It is the serialization layer of a distributed
// task runner: values cross process boundaries as JSON text (or
// deterministic CBOR), and bulk payloads are stored out-of-band in a
// hash-addressed blob container and referenced by key.
//
// The central type is the Registry, a composable dispatch table from
// Go type to Serializer. Lookup is deterministic: exact type first,
// then registered interfaces in registration order, then the hook,
// then the default serializer. Registries compose left-biased with
// Merge, so independently defined capability sets (base types, array
// support, application types) can be summed.
//
// JSON-native values — booleans, numbers, strings, and maps or slices
// of them — pass through unwrapped. Everything else is wrapped in an
// envelope carrying a format version, a kind tag, the class name used
// to re-resolve the serializer on decode, and the encoded data:
//
//	{"_wirepack": "1.0.0", "type": "object", "class": "starcat.Star", "data": "G2V"}
//
// An envelope with "ref": true defers reconstruction: FromWire with
// deref=false returns a *Ref placeholder holding the raw envelope,
// and the referenced payload is only materialized when the Ref is
// resolved. Serializers for blob-backed types set the flag so cached
// results never re-embed multi-gigabyte buffers.
//
// Decode-side dispatch uses a static class-name table populated at
// registration time. There is no dynamic code loading: a class name
// that was never registered does not decode.
package serial
