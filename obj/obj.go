// Package obj is the external object-file interface a compiled Module
// exposes: declarations, defined bytes, and relocations, plus the
// shared-library flag a containing linker needs per binary format.
// Grounded on ygen's Obj/dll.rs (DllBuilder's per-bin-format flags) and
// the Link record falcon's lack of an encoder left unaddressed —
// modeled instead on ygen's Target/registry.rs buildMachineCodeForTarget,
// which stamps link.from/link.at from the encoder's running offset.
package obj

import (
	"fmt"

	"retarget/target"
)

// RelocKind is the addressing mode a relocation record patches in.
type RelocKind int

const (
	RelocAbsolute64 RelocKind = iota
	RelocPCRel32
)

// Link is one relocation: at byte Offset within From's encoded bytes, a
// 4- or 8-byte field needs the final address of Symbol (plus Addend)
// patched in once the whole module's layout is known.
type Link struct {
	Symbol string
	From   string
	Offset int
	Addend int64
	Kind   RelocKind
}

type Linkage int

const (
	LinkageExtern Linkage = iota
	LinkageInternal
	LinkageWeak
)

func (l Linkage) String() string {
	switch l {
	case LinkageExtern:
		return "extern"
	case LinkageInternal:
		return "internal"
	case LinkageWeak:
		return "weak"
	default:
		return "?"
	}
}

type DeclKind int

const (
	DeclFunction DeclKind = iota
	DeclData
)

type Decl struct {
	Name    string
	Kind    DeclKind
	Linkage Linkage
}

// Module is the finished compilation product: the declarations it makes
// (for symbol resolution by a downstream linker), the bytes defined for
// each (nil for a Decl that is only declared, e.g. an extern import), and
// the relocations those bytes still need resolved.
type Module struct {
	Triple  target.Triple
	Decls   []Decl
	Defines map[string][]byte
	Relocs  []Link
}

func NewModule(t target.Triple) *Module {
	return &Module{Triple: t, Defines: map[string][]byte{}}
}

func (m *Module) Declare(d Decl) {
	m.Decls = append(m.Decls, d)
}

func (m *Module) Define(name string, code []byte) {
	m.Defines[name] = code
}

func (m *Module) Relocate(l Link) {
	m.Relocs = append(m.Relocs, l)
}

// SharedLibraryFlags returns the symbolic format-specific header flag
// name a module built as a shared library must carry, mirroring ygen's
// DllBuilder::new switch over triple.bin (Obj/dll.rs): COFF gets
// IMAGE_FILE_DLL, ELF gets ET_DYN (System-V OS/ABI), Mach-O gets
// MH_DYLIB. Returned as the symbol name rather than its numeric value
// since the external object writer these flags are handed to (out of
// scope here) looks the name up in its own container-format constants.
func SharedLibraryFlags(t target.Triple) (string, error) {
	switch t.BinFormat {
	case target.BinCOFF:
		return "IMAGE_FILE_DLL", nil
	case target.BinELF:
		return "ET_DYN", nil
	case target.BinMachO:
		return "MH_DYLIB", nil
	default:
		return "", fmt.Errorf("obj: no shared-library flag for bin format %v", t.BinFormat)
	}
}
