// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used for wirepack's binary
// wire form. All encoding goes through a single deterministic
// configuration so that identical logical data always produces
// identical bytes, which matters anywhere encoded output is hashed or
// compared (result caching, deduplication, change detection).
package codec
