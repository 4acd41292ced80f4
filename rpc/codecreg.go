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

package rpc

import (
	"reflect"

	"github.com/launix-de/farmem/wire"
)

// reflectCodec pairs an encode/decode function operating on reflect.Value
// with the concrete type it handles, so Router.Dispatch can stay generic
// over argument/result shapes without the caller hand-writing a decoder
// per registered method.
type reflectCodec struct {
	encode func(b *wire.Buffer, v reflect.Value)
	decode func(b *wire.Buffer) (reflect.Value, error)
}

var (
	int64Type   = reflect.TypeOf(int64(0))
	intType     = reflect.TypeOf(int(0))
	float64Type = reflect.TypeOf(float64(0))
	stringType  = reflect.TypeOf("")
	boolType    = reflect.TypeOf(false)
	bytesType   = reflect.TypeOf([]byte(nil))
)

// codecFor returns the reflect-level codec for one of the primitive wire
// types the router supports. Unsupported types (structs, interfaces,
// channels, ...) return ok=false so Register can fail fast with a clear
// message instead of panicking deep inside Dispatch.
func codecFor(t reflect.Type) (reflectCodec, bool) {
	switch t {
	case int64Type:
		return reflectCodec{
			encode: func(b *wire.Buffer, v reflect.Value) { b.WriteI64(v.Int()) },
			decode: func(b *wire.Buffer) (reflect.Value, error) {
				i, err := b.ReadI64()
				return reflect.ValueOf(i), err
			},
		}, true
	case intType:
		return reflectCodec{
			encode: func(b *wire.Buffer, v reflect.Value) { b.WriteI64(v.Int()) },
			decode: func(b *wire.Buffer) (reflect.Value, error) {
				i, err := b.ReadI64()
				return reflect.ValueOf(int(i)), err
			},
		}, true
	case float64Type:
		return reflectCodec{
			encode: func(b *wire.Buffer, v reflect.Value) { b.WriteF64(v.Float()) },
			decode: func(b *wire.Buffer) (reflect.Value, error) {
				f, err := b.ReadF64()
				return reflect.ValueOf(f), err
			},
		}, true
	case stringType:
		return reflectCodec{
			encode: func(b *wire.Buffer, v reflect.Value) { b.WriteString(v.String()) },
			decode: func(b *wire.Buffer) (reflect.Value, error) {
				s, err := b.ReadString()
				return reflect.ValueOf(s), err
			},
		}, true
	case boolType:
		return reflectCodec{
			encode: func(b *wire.Buffer, v reflect.Value) { b.WriteBool(v.Bool()) },
			decode: func(b *wire.Buffer) (reflect.Value, error) {
				x, err := b.ReadBool()
				return reflect.ValueOf(x), err
			},
		}, true
	case bytesType:
		return reflectCodec{
			encode: func(b *wire.Buffer, v reflect.Value) {
				wire.BytesCodec.Write(b, v.Interface().([]byte))
			},
			decode: func(b *wire.Buffer) (reflect.Value, error) {
				p, err := wire.BytesCodec.Read(b)
				return reflect.ValueOf(p), err
			},
		}, true
	default:
		return reflectCodec{}, false
	}
}
