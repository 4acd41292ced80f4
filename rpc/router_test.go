package rpc

import (
	"testing"

	"github.com/launix-de/farmem/wire"
)

// TestRPCAddS2 reproduces scenario S2: register Add(int,int)->int, call it,
// expect success=true, value=5.
func TestRPCAddS2(t *testing.T) {
	r := NewRouter()
	r.Register("Add", func(a, b int64) int64 { return a + b })
	r.Seal()

	args := wire.NewBuffer()
	args.WriteI64(2)
	args.WriteI64(3)

	code, reply := r.Dispatch("Add", args)
	if code != Success {
		t.Fatalf("expected Success, got %v", code)
	}
	v, err := reply.ReadI64()
	if err != nil || v != 5 {
		t.Fatalf("expected 5, got %d err %v", v, err)
	}
}

// TestRPCMissingMethodS4 reproduces scenario S4: calling an unregistered
// method returns MethodNotFound and an empty payload.
func TestRPCMissingMethodS4(t *testing.T) {
	r := NewRouter()
	r.Register("Add", func(a, b int64) int64 { return a + b })
	r.Seal()

	args := wire.NewBuffer()
	args.WriteI64(2)
	args.WriteI64(3)

	code, reply := r.Dispatch("Multiply", args)
	if code != MethodNotFound {
		t.Fatalf("expected MethodNotFound, got %v", code)
	}
	if reply.Len() != 0 {
		t.Fatalf("expected empty payload, got %d bytes", reply.Len())
	}
}

func TestRPCStringAndBytes(t *testing.T) {
	r := NewRouter()
	r.Register("Echo", func(s string, p []byte) (string, []byte) {
		return s + s, append(p, p...)
	})
	r.Seal()

	args := wire.NewBuffer()
	args.WriteString("ab")
	wire.BytesCodec.Write(args, []byte{1, 2, 3})

	code, reply := r.Dispatch("Echo", args)
	if code != Success {
		t.Fatalf("expected Success, got %v", code)
	}
	s, err := reply.ReadString()
	if err != nil || s != "abab" {
		t.Fatalf("got %q err %v", s, err)
	}
	p, err := wire.BytesCodec.Read(reply)
	if err != nil || len(p) != 6 {
		t.Fatalf("got %v err %v", p, err)
	}
}

func TestRegisterAfterSealPanics(t *testing.T) {
	r := NewRouter()
	r.Seal()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic registering after Seal")
		}
	}()
	r.Register("Late", func() int64 { return 0 })
}

func TestRegisterUnsupportedTypePanics(t *testing.T) {
	r := NewRouter()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unsupported parameter type")
		}
	}()
	type weird struct{ X int }
	r.Register("Weird", func(w weird) int64 { return 0 })
}
