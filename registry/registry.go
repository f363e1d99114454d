// Package registry is the top-level entry point that resolves a target
// triple to a backend instance and drives one function through the
// full compile state machine, grounded on ygen's Target/registry.rs
// (TargetRegistry::getBasedOnTriple + buildMachineCodeForTarget). Unlike
// ygen's registry, which hands out one long-lived backend object it
// resets between calls, NewBackend here constructs a brand-new instance
// per compile (spec.md's §5/§9 redesign direction): nothing about a
// backend's internal state survives past one function, so there is no
// reset-discipline bug class to guard against.
package registry

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"retarget/backend"
	"retarget/backend/wasm"
	"retarget/backend/x64"
	"retarget/ir"
	"retarget/machineir"
	"retarget/obj"
	"retarget/target"
)

// Options tunes a Compile run. OptLevel currently only gates whether
// Optimize (peephole) runs at all; there is no multi-level pass
// pipeline to select between (falcon's CodeGen has no -O flag either).
type Options struct {
	OptLevel int
	Debug    bool
}

var Log = logrus.New()

// NewBackend constructs a fresh backend.TargetBackend for t, mirroring
// getBasedOnTriple's arch switch. Returns ErrUnsupportedArch-shaped error
// for anything neither x64 nor wasm backend understands.
func NewBackend(t target.Triple) (backend.TargetBackend, error) {
	switch t.Arch {
	case target.ArchX86_64:
		b, err := x64.New(t)
		if err != nil {
			return nil, errors.Wrap(err, "registry.NewBackend")
		}
		return b, nil
	case target.ArchWasm32:
		b, err := wasm.New(t)
		if err != nil {
			return nil, errors.Wrap(err, "registry.NewBackend")
		}
		return b, nil
	default:
		return nil, errors.Errorf("registry: unsupported arch %v", t.Arch)
	}
}

// CompileFunction drives fn through the full state machine for every
// reachable block, defining its bytes and relocations into mod. Any
// error at any stage aborts the function and discards its partial
// bytes/relocations, matching the "errors at any state discard partial
// output" invariant spec.md §4.9 requires — nothing is written to mod
// until the whole function has encoded cleanly.
func CompileFunction(fn *ir.Function, mod *obj.Module, opts Options) error {
	log := Log.WithField("function", fn.Name)

	if err := fn.Verify(); err != nil {
		log.WithError(err).Error("verification failed")
		return errors.Wrapf(err, "registry: %s failed verification", fn.Name)
	}

	b, err := NewBackend(mod.Triple)
	if err != nil {
		return errors.Wrap(err, "registry.CompileFunction")
	}

	entry := fn.Blocks[0]
	if err := b.SetBlock(fn, entry); err != nil {
		return errors.Wrap(err, "registry.CompileFunction: SetBlock")
	}

	sink := &machineir.Sink{}
	if err := b.BuildInstrs(sink); err != nil {
		b.Reset()
		return errors.Wrapf(err, "registry: %s: BuildInstrs", fn.Name)
	}

	if err := b.Lower(); err != nil {
		b.Reset()
		return errors.Wrapf(err, "registry: %s: Lower", fn.Name)
	}

	if opts.OptLevel > 0 {
		if err := b.Optimize(); err != nil {
			b.Reset()
			return errors.Wrapf(err, "registry: %s: Optimize", fn.Name)
		}
	}

	code, err := b.Encode(mod, fn.Name)
	if err != nil {
		b.Reset()
		return errors.Wrapf(err, "registry: %s: Encode", fn.Name)
	}

	mod.Declare(obj.Decl{Name: fn.Name, Kind: obj.DeclFunction, Linkage: obj.LinkageExtern})
	mod.Define(fn.Name, code)
	b.Reset()

	log.WithField("bytes", len(code)).Debug("function compiled")
	return nil
}

// CompileModule compiles every function in fns into a fresh obj.Module
// for t, stopping at the first failure (mirrors falcon's CompileTheWorld
// halting on the first compile error rather than collecting all of them).
func CompileModule(t target.Triple, fns []*ir.Function, opts Options) (*obj.Module, error) {
	mod := obj.NewModule(t)
	for _, fn := range fns {
		if err := CompileFunction(fn, mod, opts); err != nil {
			return nil, err
		}
	}
	return mod, nil
}
