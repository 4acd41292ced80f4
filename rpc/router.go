/*
Copyright (C) 2026  MemCP Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package rpc implements a name -> handler dispatch table for Call
// bodies. Neither the server nor the client in this module builds a
// Router: transport.MemStore, the only server-side Instance, answers
// every Call with MethodNotFound.
package rpc

import (
	"fmt"
	"reflect"

	"github.com/launix-de/farmem/wire"
)

// ErrorCode distinguishes Success from MethodNotFound, the only two
// outcomes a router Dispatch call produces.
type ErrorCode uint8

const (
	Success ErrorCode = iota
	MethodNotFound
)

func (e ErrorCode) String() string {
	switch e {
	case Success:
		return "Success"
	case MethodNotFound:
		return "MethodNotFound"
	default:
		return fmt.Sprintf("ErrorCode(%d)", uint8(e))
	}
}

// handler is a type-erased closure that carries its own argument-tuple
// decoder and result encoder, built once at Register time by reflecting
// over the supplied Go function's signature.
type handler struct {
	name    string
	argTys  []reflect.Type
	retTys  []reflect.Type
	fnValue reflect.Value
}

// Router maps method names to handlers. Registration (Register) is not
// goroutine-safe; Dispatch is safe for concurrent use once Seal has been
// called — the table is immutable after startup.
type Router struct {
	sealed   bool
	handlers map[string]*handler
}

// NewRouter creates an empty, unsealed router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]*handler)}
}

// Register derives the argument tuple and return type of fn via reflection
// and stores it under name. fn must be a function value; its parameters and
// results must all be encodable by the codecFor table below. Panics if fn
// is not a function, if called after Seal, or if a parameter/result type
// has no known wire codec.
func (r *Router) Register(name string, fn any) {
	if r.sealed {
		panic("rpc: Register called after Seal on router for " + name)
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		panic("rpc: Register(" + name + ") expects a function value")
	}
	t := v.Type()
	if t.IsVariadic() {
		panic("rpc: Register(" + name + ") variadic functions are not supported")
	}

	h := &handler{name: name, fnValue: v}
	for i := 0; i < t.NumIn(); i++ {
		pt := t.In(i)
		if _, ok := codecFor(pt); !ok {
			panic(fmt.Sprintf("rpc: Register(%s) unsupported parameter type %s", name, pt))
		}
		h.argTys = append(h.argTys, pt)
	}
	for i := 0; i < t.NumOut(); i++ {
		rt := t.Out(i)
		if _, ok := codecFor(rt); !ok {
			panic(fmt.Sprintf("rpc: Register(%s) unsupported result type %s", name, rt))
		}
		h.retTys = append(h.retTys, rt)
	}
	r.handlers[name] = h
}

// Seal marks the router read-only; Register panics after this point.
func (r *Router) Seal() {
	r.sealed = true
}

// Dispatch decodes argBuf as the tuple the named handler's parameters
// describe, applies the handler, and encodes the results as a reply
// buffer. Returns MethodNotFound with an empty payload if name is
// unregistered — the one error allowed to bubble up to application code
// as data rather than a panic.
func (r *Router) Dispatch(name string, argBuf *wire.Buffer) (ErrorCode, *wire.Buffer) {
	h, ok := r.handlers[name]
	if !ok {
		return MethodNotFound, wire.NewBuffer()
	}

	args := make([]reflect.Value, len(h.argTys))
	for i, ty := range h.argTys {
		c, _ := codecFor(ty)
		val, err := c.decode(argBuf)
		if err != nil {
			panic("rpc: Dispatch(" + name + ") failed decoding argument " + fmt.Sprint(i) + ": " + err.Error())
		}
		args[i] = val
	}

	results := h.fnValue.Call(args)

	reply := wire.NewBuffer()
	for i, ty := range h.retTys {
		c, _ := codecFor(ty)
		c.encode(reply, results[i])
	}
	return Success, reply
}

// Names returns the registered method names, for diagnostics/dashboards.
func (r *Router) Names() []string {
	out := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		out = append(out, n)
	}
	return out
}
