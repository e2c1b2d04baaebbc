// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"time"
)

// Base returns the baseline capability set every task runner needs:
//
//   - time.Time via its RFC 3339 text round trip
//   - []byte as a base64 string (class "bytes")
//   - a hook that auto-derives records for any struct type
//
// Base carries no default serializer; compose with OpaqueFallback for
// a final fallback:
//
//	registry := serial.Merge(serial.Base(), serial.OpaqueFallback())
func Base() *Registry {
	r := NewRegistry()

	r.RegisterText(time.Time{})

	r.RegisterAs([]byte(nil), "bytes",
		&stringSerializer{
			to: func(value any) (string, error) {
				raw, ok := value.([]byte)
				if !ok {
					return "", fmt.Errorf("expected []byte, got %T", value)
				}
				return base64.StdEncoding.EncodeToString(raw), nil
			},
			from: func(s string) (any, error) {
				return base64.StdEncoding.DecodeString(s)
			},
		})

	r.SetHook(func(value any) Serializer {
		typ := reflect.TypeOf(value)
		for typ.Kind() == reflect.Pointer {
			typ = typ.Elem()
		}
		if typ.Kind() == reflect.Struct {
			return Record()
		}
		return nil
	})

	return r
}

// OpaqueFallback returns a registry whose only capability is the
// opaque default serializer. Summed to the right of more specific
// registries, it catches everything they decline.
func OpaqueFallback() *Registry {
	r := NewRegistry()
	r.SetDefault(Opaque())
	return r
}
