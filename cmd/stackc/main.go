// stackc CLI - assembles, compiles and runs stack machine programs
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	"github.com/chazu/stackc/compiler"
	"github.com/chazu/stackc/harness"
	"github.com/chazu/stackc/manifest"
	"github.com/chazu/stackc/pkg/codegen"
	"github.com/chazu/stackc/pkg/word"
	"github.com/chazu/stackc/server"
	"github.com/chazu/stackc/store"

	_ "github.com/tliron/commonlog/simple"
)

// verbosity counts repeated -v flags.
type verbosity int

func (v *verbosity) String() string   { return fmt.Sprint(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }
func (v *verbosity) Set(string) error {
	*v++
	return nil
}

// options are the resolved settings for one invocation: manifest values
// overridden by explicit flags.
type options struct {
	emitIR    bool
	emitGo    string
	goPackage string
	emitBC    string
	format    string
	cache     bool
	cachePath string
	plain     bool
}

// openStore is replaceable in tests.
var openStore = store.Open

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

// realMain runs the CLI and returns the process exit code. Deferred
// cleanup runs before main exits.
func realMain(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("stackc", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var verbose verbosity
	fs.Var(&verbose, "v", "Verbose logging (repeat for more)")
	configDir := fs.String("config", "", "Directory containing stackc.toml (default: search upward from the working directory)")
	initMode := fs.Bool("init", false, "Write a default stackc.toml into the working directory")
	emitIR := fs.Bool("emit-ir", false, "Print the translation unit")
	emitGo := fs.String("emit-go", "", "Write ahead-of-time Go source for the program to this file")
	goPackage := fs.String("go-package", "main", "Package name for -emit-go")
	emitBC := fs.String("emit-bc", "", "Write the encoded bytecode to this file")
	format := fs.String("format", "text", "Result format: text or yaml")
	noCache := fs.Bool("no-cache", false, "Do not use the program cache")
	serveMode := fs.Bool("serve", false, "Start the execution server (Connect HTTP + gRPC)")
	lspMode := fs.Bool("lsp", false, "Start the language server on stdio")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: stackc [options] <assembly_file> <in_array_file> <out_array_file>\n\n")
		fmt.Fprintf(stderr, "Assembles the program, compiles it, runs it against the two arrays and\n")
		fmt.Fprintf(stderr, "prints the status together with both arrays.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  stackc add.sasm in.txt out.txt             # Run a program\n")
		fmt.Fprintf(stderr, "  stackc -emit-ir add.sasm in.txt out.txt    # Also print the IR\n")
		fmt.Fprintf(stderr, "  stackc -format yaml add.sasm in.txt out.txt\n")
		fmt.Fprintf(stderr, "  stackc -serve                              # Serve Execute on :4567 / :4568\n")
		fmt.Fprintf(stderr, "  stackc -lsp                                # Editor support over stdio\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	wd, err := os.Getwd()
	if err != nil {
		return fail(stderr, err)
	}

	if *initMode {
		m := manifest.Default()
		m.Project.Name = filepath.Base(wd)
		if err := manifest.Write(wd, m); err != nil {
			return fail(stderr, err)
		}
		fmt.Fprintf(stdout, "Wrote %s\n", filepath.Join(wd, manifest.FileName))
		return 0
	}

	m, err := loadManifest(*configDir, wd)
	if err != nil {
		return fail(stderr, err)
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	logLevel := m.Log.Verbosity
	if set["v"] {
		logLevel = int(verbose)
	}
	var logFile *string
	if m.Log.File != "" {
		logFile = &m.Log.File
	}
	commonlog.Configure(logLevel, logFile)

	opts := options{
		emitIR:    m.Compile.EmitIR,
		emitGo:    m.EmitGoPath(),
		goPackage: m.Compile.GoPackage,
		emitBC:    *emitBC,
		format:    *format,
		cache:     m.Cache.Enabled && !*noCache,
		cachePath: m.CachePath(),
		plain:     !isTerminal(stdout),
	}
	if set["emit-ir"] {
		opts.emitIR = *emitIR
	}
	if set["emit-go"] {
		opts.emitGo = *emitGo
	}
	if set["go-package"] {
		opts.goPackage = *goPackage
	}

	// Start language server if requested
	if *lspMode {
		if err := server.NewLSP().Run(); err != nil {
			return fail(stderr, err)
		}
		return 0
	}

	var st *store.Store
	if opts.cache {
		st, err = openStore(opts.cachePath)
		if err != nil {
			fmt.Fprintf(stderr, "Warning: cache disabled: %v\n", err)
			st = nil
		} else {
			defer st.Close()
		}
	}
	pipeline := harness.NewPipeline(st)

	// Start execution server if requested
	if *serveMode {
		srv := server.New(pipeline)
		if err := srv.ListenAndServe(m.Server.Addr, m.Server.GRPCAddr); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return 1
		}
		return 0
	}

	if fs.NArg() != 3 {
		fs.Usage()
		return 1
	}

	if err := run(context.Background(), stdout, pipeline, opts, fs.Arg(0), fs.Arg(1), fs.Arg(2)); err != nil {
		return fail(stderr, err)
	}
	return 0
}

// isTerminal reports whether w is a terminal, which selects the decorated
// report layout.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// loadManifest reads stackc.toml from dir, or searches upward from wd when
// dir is empty. Without a manifest the defaults apply relative to wd.
func loadManifest(dir, wd string) (*manifest.Manifest, error) {
	if dir != "" {
		return manifest.Load(dir)
	}
	m, err := manifest.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = manifest.Default()
		m.Dir = wd
	}
	return m, nil
}

// run executes one program and prints the report to w.
func run(ctx context.Context, w io.Writer, p *harness.Pipeline, opts options, asmPath, inPath, outPath string) error {
	if opts.format != "text" && opts.format != "yaml" && opts.format != "" {
		return fmt.Errorf("unknown format %q (want text or yaml)", opts.format)
	}

	source, err := os.ReadFile(asmPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file '%s' not found", asmPath)
		}
		return err
	}

	build, err := p.Build(ctx, string(source))
	if err != nil {
		var perr *compiler.ParseError
		if errors.As(err, &perr) {
			return fmt.Errorf("parsing assembly file: %w", err)
		}
		return err
	}

	in, err := word.ReadArrayFile(inPath)
	if err != nil {
		return fmt.Errorf("reading 'in' array: %w", err)
	}
	out, err := word.ReadArrayFile(outPath)
	if err != nil {
		return fmt.Errorf("reading 'out' array: %w", err)
	}

	if opts.emitGo != "" {
		src, err := codegen.EmitGo(build.Module, opts.goPackage)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.emitGo, src, 0o644); err != nil {
			return err
		}
	}
	if opts.emitBC != "" {
		data, err := build.Program.Encode()
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.emitBC, data, 0o644); err != nil {
			return err
		}
	}

	res, err := p.Execute(ctx, build, *in, *out)
	if err != nil {
		return err
	}

	rep := newReport(build, res, opts.emitIR)
	if opts.format == "yaml" {
		return rep.writeYAML(w)
	}
	return rep.writeText(w, opts.plain)
}

func fail(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
