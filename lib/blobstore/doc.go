// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package blobstore implements the hash-addressed store for bulk
// payloads that are too large to embed in wire envelopes. A payload is
// a typed, shaped byte buffer (a numeric array, typically); its key is
// a keyed BLAKE3 digest over the element type, the shape, and the raw
// bytes, in that fixed order. Identical payloads always hash to the
// same key, so the store deduplicates by construction: a key, once
// written, is never written again.
//
// Storage is a single shared container file holding appended entries,
// each with a fixed binary header (key, compression tag, element type,
// shape, sizes) followed by the possibly-compressed payload bytes.
// Entries are compressed per-entry with a size-guarded fallback to
// uncompressed storage, so incompressible data costs nothing extra.
//
// The container is shared between processes. Every Put and Get holds a
// flock on a sibling lock file for the full span of the existence
// check through the write or read, so two concurrent Puts of the same
// payload are linearized: at most one performs the physical write and
// both return the same key. The lock file is scoped to the container
// path — unrelated containers never contend.
package blobstore
