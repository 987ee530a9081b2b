package harness

import (
	"context"
	"errors"
	"time"

	"github.com/chazu/stackc/compiler"
	"github.com/chazu/stackc/pkg/bytecode"
	"github.com/chazu/stackc/pkg/codegen"
	"github.com/chazu/stackc/pkg/ir"
	"github.com/chazu/stackc/pkg/word"
	"github.com/chazu/stackc/store"
)

// Pipeline runs sources end to end, caching assembled programs and
// recording runs when a store is attached.
type Pipeline struct {
	store *store.Store
}

// NewPipeline creates a pipeline. st may be nil to disable caching.
func NewPipeline(st *store.Store) *Pipeline {
	return &Pipeline{store: st}
}

// Build is a compiled source.
type Build struct {
	Hash    store.Hash
	Program bytecode.Program
	Module  *ir.Module
	Cached  bool // the program came from the store
}

// Build assembles and compiles source, consulting the cache first.
func (p *Pipeline) Build(ctx context.Context, source string) (*Build, error) {
	b := &Build{Hash: store.HashSource(source)}

	if p.store != nil {
		prog, err := p.store.GetProgram(ctx, b.Hash)
		switch {
		case err == nil:
			b.Program, b.Cached = prog, true
		case !errors.Is(err, store.ErrNotFound):
			log.Warningf("program cache read failed: %s", err)
		}
	}

	if b.Program == nil {
		prog, err := compiler.Assemble(source)
		if err != nil {
			return nil, err
		}
		b.Program = prog
		if p.store != nil {
			if err := p.store.PutProgram(ctx, b.Hash, prog); err != nil {
				log.Warningf("program cache write failed: %s", err)
			}
		}
	}

	unit, err := codegen.Compile(b.Program)
	if err != nil {
		return nil, err
	}
	b.Module = unit
	log.Debugf("built %s: %d instructions, cached=%t", b.Hash.Short(), len(b.Program), b.Cached)
	return b, nil
}

// Execute runs a build and records the run.
func (p *Pipeline) Execute(ctx context.Context, b *Build, in, out word.Array) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	res, err := Execute(in, out, b.Module)
	if err != nil {
		return nil, err
	}
	res.Cached = b.Cached

	if p.store != nil {
		run := &store.Run{
			Hash:     b.Hash,
			Status:   res.Status,
			Started:  started,
			Duration: time.Since(started),
		}
		if err := p.store.RecordRun(ctx, run); err != nil {
			log.Warningf("recording run failed: %s", err)
		} else {
			res.RunID = run.ID
		}
	}
	return res, nil
}

// Run builds and executes source.
func (p *Pipeline) Run(ctx context.Context, source string, in, out word.Array) (*Result, error) {
	b, err := p.Build(ctx, source)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, b, in, out)
}
