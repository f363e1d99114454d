// Package types describes the width/signedness metadata carried by every
// IR value and machine operand, independent of any source language.
package types

import "fmt"

// Meta is the type metadata attached to a Var, a MachineInstr, and an MCInstr.
// It is a value type: two Metas with equal fields are interchangeable.
type Meta struct {
	Width   uint8 // in bits: 8/16/32/64 for integers, 32/64 for floats
	Signed  bool
	Float   bool
	pointee *Meta // non-nil for pointer-shaped values (Alloca/AdressLoad results)
}

var (
	I8  = Meta{Width: 8, Signed: true}
	I16 = Meta{Width: 16, Signed: true}
	I32 = Meta{Width: 32, Signed: true}
	I64 = Meta{Width: 64, Signed: true}
	U8  = Meta{Width: 8, Signed: false}
	U16 = Meta{Width: 16, Signed: false}
	U32 = Meta{Width: 32, Signed: false}
	U64 = Meta{Width: 64, Signed: false}
	F32 = Meta{Width: 32, Float: true, Signed: true}
	F64 = Meta{Width: 64, Float: true, Signed: true}
	// Void is the result type of instructions with no output (Return, Store, Br...).
	Void = Meta{Width: 0}
	// Ptr is the generic pointer type produced by Alloca/AdressLoad.
	Ptr = Meta{Width: 64, Signed: false}
)

// Pointer returns a Ptr-shaped Meta whose Pointee is to.
func Pointer(to Meta) Meta {
	cp := to
	m := Ptr
	m.pointee = &cp
	return m
}

func (m Meta) Pointee() (Meta, bool) {
	if m.pointee == nil {
		return Meta{}, false
	}
	return *m.pointee, true
}

func (m Meta) IsVoid() bool { return m.Width == 0 && !m.Float }

// SubType projects a register-width type down (or up) to another width
// while preserving signedness/float-ness, e.g. a 64-bit GR narrowed to its
// 32-bit alias. Mirrors falcon's Register.Cast, generalized from registers
// to bare type metadata so the allocator can reason about it before any
// register is assigned.
func (m Meta) SubType(width uint8) Meta {
	out := m
	out.Width = width
	return out
}

// Bytes returns the storage size rounded up to a whole byte.
func (m Meta) Bytes() int {
	return (int(m.Width) + 7) / 8
}

func (m Meta) String() string {
	if m.IsVoid() {
		return "void"
	}
	prefix := "i"
	if m.Float {
		prefix = "f"
	} else if !m.Signed {
		prefix = "u"
	}
	return fmt.Sprintf("%s%d", prefix, m.Width)
}

// Equal reports whether two Metas describe the same width/signedness/float-ness.
// Pointee information is ignored for equality: the allocator and lowering only
// ever care about the physical representation.
func (m Meta) Equal(o Meta) bool {
	return m.Width == o.Width && m.Signed == o.Signed && m.Float == o.Float
}
