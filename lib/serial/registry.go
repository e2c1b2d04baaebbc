// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"fmt"
	"reflect"
)

// Hook is the registry's extensibility point: it is tried when table
// lookup fails, before the default serializer. Return nil to decline a
// value.
type Hook func(value any) Serializer

// entry binds a concrete type, its wire class name, and its
// serializer.
type entry struct {
	typ  reflect.Type
	name string
	ser  Serializer
}

// ifaceEntry binds an interface type to a serializer. Interface
// entries are tried in registration order after exact lookup fails —
// the Go rendering of base-type fallback.
type ifaceEntry struct {
	typ reflect.Type
	ser Serializer
}

// Registry is an ordered dispatch table from type to Serializer, with
// an interface fallback chain, an extensibility hook, and a default
// serializer. Build it once at startup (registration methods are not
// safe against concurrent lookups); after construction it is an
// immutable, shared, read-only structure.
type Registry struct {
	byType map[reflect.Type]*entry
	byName map[string]*entry
	ifaces []ifaceEntry
	hook   Hook
	def    Serializer
}

// NewRegistry returns an empty registry. An empty registry is the
// identity for Merge.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*entry),
		byName: make(map[string]*entry),
	}
}

// className is the wire class name for a Go type: the package path
// and type name joined with a dot. Unnamed types fall back to their
// type string.
func className(typ reflect.Type) string {
	if typ.Name() == "" || typ.PkgPath() == "" {
		return typ.String()
	}
	return typ.PkgPath() + "." + typ.Name()
}

// Register binds the concrete type of prototype to s, under the
// type's default class name. Registering the same type again replaces
// the earlier binding.
func (r *Registry) Register(prototype any, s Serializer) {
	r.RegisterAs(prototype, className(reflect.TypeOf(prototype)), s)
}

// RegisterAs is Register with an explicit wire class name. Use it to
// keep wire formats stable across package moves, or for short names
// shared with non-Go peers.
func (r *Registry) RegisterAs(prototype any, class string, s Serializer) {
	typ := reflect.TypeOf(prototype)
	e := &entry{typ: typ, name: class, ser: s}
	r.byType[typ] = e
	r.byName[class] = e
}

// RegisterInterface binds an interface type to s. Pass a nil pointer
// to the interface, e.g. RegisterInterface((*Stringer)(nil), s).
// Interface entries match any value whose type (or pointer type)
// implements the interface, in registration order, after exact type
// lookup fails.
func (r *Registry) RegisterInterface(ptr any, s Serializer) {
	typ := reflect.TypeOf(ptr).Elem()
	if typ.Kind() != reflect.Interface {
		panic(fmt.Sprintf("serial: RegisterInterface needs a pointer to an interface type, got %T", ptr))
	}
	r.ifaces = append(r.ifaces, ifaceEntry{typ: typ, ser: s})
}

// RegisterRecord binds the struct type of prototype to the structural
// auto-derivation serializer: exported fields encode as a name→value
// mapping and decode by field-name matching.
func (r *Registry) RegisterRecord(prototype any) {
	r.Register(prototype, Record())
}

// RegisterRecordAs is RegisterRecord with an explicit class name.
func (r *Registry) RegisterRecordAs(prototype any, class string) {
	r.RegisterAs(prototype, class, Record())
}

// RegisterString binds the type of prototype to a custom string round
// trip. The envelope data is the compact string form, tagged
// KindObject. A from function that fails on data it previously
// produced surfaces as ErrRoundTrip at decode time.
func (r *Registry) RegisterString(prototype any, to func(value any) (string, error), from func(s string) (any, error)) {
	r.Register(prototype, &stringSerializer{to: to, from: from})
}

// RegisterText binds the type of prototype, which must implement
// encoding.TextMarshaler and (on its pointer) encoding.TextUnmarshaler,
// to a string round trip through those methods.
func (r *Registry) RegisterText(prototype any) {
	r.Register(prototype, textSerializer{})
}

// SetHook installs the lookup hook.
func (r *Registry) SetHook(h Hook) {
	r.hook = h
}

// SetDefault installs the final-fallback serializer, used when the
// tables and the hook all decline a value, and on decode when an
// envelope's class name is unknown.
func (r *Registry) SetDefault(s Serializer) {
	r.def = s
}

// Resolve returns the serializer responsible for value: exact type
// match first, then registered interfaces in order, then the hook,
// then the default. Failing all of those is a configuration error,
// reported immediately as ErrNoSerializer.
func (r *Registry) Resolve(value any) (Serializer, error) {
	ser, _, err := r.resolveValue(value)
	return ser, err
}

// resolveValue is Resolve plus the wire class name for the envelope.
func (r *Registry) resolveValue(value any) (Serializer, string, error) {
	typ := reflect.TypeOf(value)
	if typ == nil {
		return nil, "", fmt.Errorf("%w: untyped nil", ErrNoSerializer)
	}

	if e, ok := r.byType[typ]; ok {
		return e.ser, e.name, nil
	}

	for _, ie := range r.ifaces {
		if typ.Implements(ie.typ) || reflect.PointerTo(typ).Implements(ie.typ) {
			return ie.ser, className(typ), nil
		}
	}

	if r.hook != nil {
		if s := r.hook(value); s != nil {
			return s, className(typ), nil
		}
	}

	if r.def != nil {
		return r.def, className(typ), nil
	}

	return nil, "", fmt.Errorf("%w for type %s", ErrNoSerializer, typ)
}

// resolveClass re-resolves a serializer from an envelope's class name.
// The class table is static, populated at registration time; unknown
// names fall to the default serializer or fail.
func (r *Registry) resolveClass(class string) (reflect.Type, Serializer, error) {
	if e, ok := r.byName[class]; ok {
		return e.typ, e.ser, nil
	}
	if r.def != nil {
		return nil, r.def, nil
	}
	return nil, nil, fmt.Errorf("%w for class %q", ErrNoSerializer, class)
}

// Compose returns Merge(r, other): a new registry preferring r.
func (r *Registry) Compose(other *Registry) *Registry {
	return Merge(r, other)
}

// Merge returns a new registry whose lookup tries a first, then b.
// a's hook and default win when both sides have one. Neither input is
// mutated; Merge is associative and NewRegistry() is its identity, so
// capability sets can be summed in any grouping.
func Merge(a, b *Registry) *Registry {
	out := NewRegistry()

	for typ, e := range b.byType {
		out.byType[typ] = e
	}
	for typ, e := range a.byType {
		out.byType[typ] = e
	}

	for name, e := range b.byName {
		out.byName[name] = e
	}
	for name, e := range a.byName {
		out.byName[name] = e
	}

	out.ifaces = append(out.ifaces, a.ifaces...)
	for _, ie := range b.ifaces {
		if !containsIface(out.ifaces, ie.typ) {
			out.ifaces = append(out.ifaces, ie)
		}
	}

	out.hook = a.hook
	if out.hook == nil {
		out.hook = b.hook
	}
	out.def = a.def
	if out.def == nil {
		out.def = b.def
	}

	return out
}

func containsIface(entries []ifaceEntry, typ reflect.Type) bool {
	for _, e := range entries {
		if e.typ == typ {
			return true
		}
	}
	return false
}
