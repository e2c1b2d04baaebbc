// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

// Command wirepack inspects and manipulates blob containers: listing
// stored keys, printing entry metadata, extracting payload bytes, and
// storing new payloads from files. It operates on the same container
// and lock files as the worker processes, so it is safe to run against
// a live store.
package main
