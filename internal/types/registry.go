// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package types maps Go types to the names used on the wire.
package types

import (
	"reflect"
	"slices"
	"strings"

	"github.com/actorgrid/actorgrid/internal/xsync"
)

// Registry resolves registered Go types from their wire names.
type Registry struct {
	byName *xsync.Map[string, reflect.Type]
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: xsync.NewMap[string, reflect.Type]()}
}

// Register adds the type of v and returns its wire name. Pointers are
// registered as their element type. A nil v is ignored.
func (r *Registry) Register(v any) string {
	rtype := elem(v)
	if rtype == nil {
		return ""
	}
	name := normalize(rtype.String())
	r.byName.Set(name, rtype)
	return name
}

// Deregister removes the type of v.
func (r *Registry) Deregister(v any) {
	if name := TypeName(v); name != "" {
		r.byName.Delete(name)
	}
}

// Exists reports whether the type of v is registered.
func (r *Registry) Exists(v any) bool {
	name := TypeName(v)
	if name == "" {
		return false
	}
	_, ok := r.byName.Get(name)
	return ok
}

// TypeOf returns the type registered under name. Lookups ignore case and
// surrounding spaces.
func (r *Registry) TypeOf(name string) (reflect.Type, bool) {
	return r.byName.Get(normalize(name))
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := r.byName.Keys()
	slices.Sort(names)
	return names
}

// TypeName returns the wire name of v: the lower cased Go type string with
// any pointer indirection removed, e.g. "main.order" for *main.Order. v may
// be a reflect.Type.
func TypeName(v any) string {
	if rtype := elem(v); rtype != nil {
		return normalize(rtype.String())
	}
	return ""
}

func elem(v any) reflect.Type {
	rtype, ok := v.(reflect.Type)
	if !ok {
		rtype = reflect.TypeOf(v)
	}
	for rtype != nil && rtype.Kind() == reflect.Pointer {
		rtype = rtype.Elem()
	}
	return rtype
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
