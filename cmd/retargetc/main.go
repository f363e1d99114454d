// Command retargetc is the thin CLI front-end over the registry package:
// it builds a function via the builder façade, drives it through
// registry.CompileModule for the requested target, and prints the
// result in the shape -emit asks for. It contains no lowering logic of
// its own (spec.md §6) — textual IR parsing, a disassembler, and real
// COFF/ELF/Mach-O container writing are external collaborators this
// command does not attempt to reimplement; -emit=obj/dylib print the
// structured data those writers would consume instead of real
// container bytes.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"retarget/builder"
	"retarget/ir"
	"retarget/obj"
	"retarget/registry"
	"retarget/target"
	"retarget/types"
)

var (
	flagArch  string
	flagEmit  string
	flagO     int
	flagDebug bool
)

func main() {
	root := &cobra.Command{
		Use:   "retargetc",
		Short: "retargetc drives one demo function through the retarget compiler backend",
		RunE:  run,
	}
	root.Flags().StringVar(&flagArch, "arch", "x86-64", "target architecture: x86-64 or wasm32")
	root.Flags().StringVar(&flagEmit, "emit", "asm", "output form: asm, obj, or dylib")
	root.Flags().IntVar(&flagO, "O", 1, "optimization level (0 skips the backend's post-lowering peephole pass)")
	root.Flags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveTriple(arch string) (target.Triple, error) {
	switch arch {
	case "x86-64", "x86_64", "amd64":
		return target.X86_64Linux, nil
	case "wasm32", "wasm":
		return target.Wasm32, nil
	default:
		return target.Triple{}, fmt.Errorf("retargetc: unknown -arch %q (want x86-64 or wasm32)", arch)
	}
}

// demoFunction builds `func add(a, b i64) i64 { return a + b }` via the
// builder façade — the simplest shape that still exercises every pipeline
// stage (BuildInstrs, register allocation or local allocation, Lower,
// Optimize, Encode). A richer CLI would accept this from a real frontend;
// that frontend is out of scope (spec.md §1's external-collaborator list).
func demoFunction() (*ir.Function, error) {
	a := ir.Var{Name: "a", Type: types.I64}
	b := ir.Var{Name: "b", Type: types.I64}
	sum := ir.Var{Name: "sum", Type: types.I64}

	fb := builder.NewFunc("add", []ir.Var{a, b}, types.I64)
	fb.Block("entry", ir.KindReturn)
	fb.Arith(ir.KAdd, sum, a, b)
	fb.Return(&sum)
	return fb.Build()
}

func run(cmd *cobra.Command, args []string) error {
	if flagDebug {
		registry.Log.SetLevel(logrus.DebugLevel)
	}

	triple, err := resolveTriple(flagArch)
	if err != nil {
		return err
	}

	fn, err := demoFunction()
	if err != nil {
		return fmt.Errorf("retargetc: building demo function: %w", err)
	}

	mod, err := registry.CompileModule(triple, []*ir.Function{fn}, registry.Options{OptLevel: flagO, Debug: flagDebug})
	if err != nil {
		return fmt.Errorf("retargetc: compile: %w", err)
	}

	switch flagEmit {
	case "asm":
		return emitAsm(mod)
	case "obj":
		return emitObj(mod)
	case "dylib":
		return emitDylib(mod, triple)
	default:
		return fmt.Errorf("retargetc: unknown -emit %q (want asm, obj, or dylib)", flagEmit)
	}
}

func emitAsm(mod *obj.Module) error {
	for name, code := range mod.Defines {
		fmt.Printf("%s:\n", name)
		fmt.Printf("  %s\n", hex.EncodeToString(code))
	}
	return nil
}

func emitObj(mod *obj.Module) error {
	fmt.Printf("triple: %s\n", mod.Triple)
	for _, d := range mod.Decls {
		fmt.Printf("decl %s kind=%v linkage=%v size=%d\n", d.Name, d.Kind, d.Linkage, len(mod.Defines[d.Name]))
	}
	for _, r := range mod.Relocs {
		fmt.Printf("reloc %s@%s+%d kind=%v addend=%d\n", r.Symbol, r.From, r.Offset, r.Kind, r.Addend)
	}
	return nil
}

func emitDylib(mod *obj.Module, triple target.Triple) error {
	flags, err := obj.SharedLibraryFlags(triple)
	if err != nil {
		return err
	}
	fmt.Printf("shared library header flags for %s: %s\n", triple, flags)
	return emitObj(mod)
}
