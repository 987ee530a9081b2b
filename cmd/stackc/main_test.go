package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/chazu/stackc/harness"
	"github.com/chazu/stackc/pkg/bytecode"
	"github.com/chazu/stackc/store"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func addFixture(t *testing.T) string {
	return writeFiles(t, map[string]string{
		"add.sasm": "LOAD 0\nLOAD 1\nADD\nSTORE 2\nSTOP\n",
		"in.txt":   "# inputs\n5\n10\n",
		"out.txt":  "",
	})
}

func runIn(t *testing.T, dir string, opts options) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := run(context.Background(), &buf, harness.NewPipeline(nil), opts,
		filepath.Join(dir, "add.sasm"), filepath.Join(dir, "in.txt"), filepath.Join(dir, "out.txt"))
	return buf.String(), err
}

// ============ Run Tests ============

func TestRunPlainText(t *testing.T) {
	dir := addFixture(t)
	out, err := runIn(t, dir, options{format: "text", plain: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, want := range []string{
		"Bytecode: [LOAD 0, LOAD 1, ADD, STORE 2, STOP]\n",
		"In array: [5, 10, 0,",
		"Out array: [0, 0, 15, 0,",
		"Result: 0\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Generated IR") {
		t.Error("IR printed without emitIR")
	}
}

func TestRunTerminalText(t *testing.T) {
	dir := addFixture(t)
	out, err := runIn(t, dir, options{format: "text"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"; Code:", "Out:       [0, 0, 15, 0...]", "Result:    0 (ok)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunEmitIR(t *testing.T) {
	dir := addFixture(t)
	out, err := runIn(t, dir, options{format: "text", plain: true, emitIR: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out, "Generated IR:\n; ModuleID = 'stack_machine'") {
		t.Errorf("output should start with the IR:\n%s", out)
	}
	if !strings.Contains(out, "define i8 @function(") {
		t.Errorf("IR missing entry function:\n%s", out)
	}
}

func TestRunYAML(t *testing.T) {
	dir := addFixture(t)
	out, err := runIn(t, dir, options{format: "yaml"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var got struct {
		Status     int      `yaml:"status"`
		StatusText string   `yaml:"status_text"`
		Bytecode   []string `yaml:"bytecode"`
		In         []string `yaml:"in"`
		Out        []string `yaml:"out"`
		Hash       string   `yaml:"hash"`
	}
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out)
	}
	if got.Status != 0 || got.StatusText != "ok" {
		t.Errorf("status = %d %q", got.Status, got.StatusText)
	}
	if strings.Join(got.Out, ",") != "0,0,15" {
		t.Errorf("out = %v, want [0 0 15]", got.Out)
	}
	if strings.Join(got.In, ",") != "5,10" {
		t.Errorf("in = %v, want [5 10]", got.In)
	}
	if len(got.Bytecode) != 5 || len(got.Hash) != 64 {
		t.Errorf("bytecode = %v, hash = %q", got.Bytecode, got.Hash)
	}
}

func TestRunFault(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"add.sasm": "LOAD 0\nPOP\nSTORE 1\nSTOP\n",
		"in.txt":   "7\n",
		"out.txt":  "1\n2\n",
	})
	out, err := runIn(t, dir, options{format: "text", plain: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "Result: 2\n") {
		t.Errorf("want status 2:\n%s", out)
	}
	if !strings.Contains(out, "Out array: [1, 2, 0,") {
		t.Errorf("out array should be untouched:\n%s", out)
	}
}

func TestRunEmitsArtifacts(t *testing.T) {
	dir := addFixture(t)
	goPath := filepath.Join(dir, "machine.go")
	bcPath := filepath.Join(dir, "add.swbc")

	_, err := runIn(t, dir, options{format: "text", plain: true, emitGo: goPath, goPackage: "machine", emitBC: bcPath})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	src, err := os.ReadFile(goPath)
	if err != nil {
		t.Fatalf("reading Go output: %v", err)
	}
	if !strings.Contains(string(src), "package machine") {
		t.Errorf("Go output has wrong package:\n%s", src)
	}

	data, err := os.ReadFile(bcPath)
	if err != nil {
		t.Fatalf("reading bytecode output: %v", err)
	}
	prog, err := bytecode.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(prog) != 5 || prog[2].Op != bytecode.OpAdd {
		t.Errorf("decoded program = %v", prog)
	}
}

func TestRunWithStore(t *testing.T) {
	dir := addFixture(t)
	st, err := store.Open(filepath.Join(dir, ".stackc", "cache.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	p := harness.NewPipeline(st)
	for i := 0; i < 2; i++ {
		var buf bytes.Buffer
		err := run(context.Background(), &buf, p, options{format: "text"},
			filepath.Join(dir, "add.sasm"), filepath.Join(dir, "in.txt"), filepath.Join(dir, "out.txt"))
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if cached := strings.Contains(buf.String(), "(cached)"); cached != (i == 1) {
			t.Errorf("run %d cached = %t", i, cached)
		}
	}
}

// ============ Error Tests ============

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		opts  options
		want  string
	}{
		{
			name:  "unknown command",
			files: map[string]string{"add.sasm": "JUMP 0\nSTOP\n", "in.txt": "", "out.txt": ""},
			want:  "parsing assembly file: Unknown command 'JUMP' on line 1",
		},
		{
			name:  "missing assembly",
			files: map[string]string{"in.txt": "", "out.txt": ""},
			want:  "not found",
		},
		{
			name:  "bad in array",
			files: map[string]string{"add.sasm": "STOP\n", "in.txt": "abc\n", "out.txt": ""},
			want:  "reading 'in' array: Invalid integer 'abc' on line 1",
		},
		{
			name:  "bad out array",
			files: map[string]string{"add.sasm": "STOP\n", "in.txt": "", "out.txt": "-4\n"},
			want:  "reading 'out' array:",
		},
		{
			name:  "unknown format",
			files: map[string]string{"add.sasm": "STOP\n", "in.txt": "", "out.txt": ""},
			opts:  options{format: "xml"},
			want:  "unknown format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeFiles(t, tt.files)
			if tt.opts.format == "" {
				tt.opts.format = "text"
			}
			_, err := runIn(t, dir, tt.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

// ============ CLI Tests ============

// trackStores records every store the CLI opens.
func trackStores(t *testing.T) *[]*store.Store {
	t.Helper()
	var opened []*store.Store
	orig := openStore
	openStore = func(path string) (*store.Store, error) {
		st, err := orig(path)
		if err == nil {
			opened = append(opened, st)
		}
		return st, err
	}
	t.Cleanup(func() { openStore = orig })
	return &opened
}

func cliFixture(t *testing.T) string {
	dir := addFixture(t)
	cfg := "[cache]\nenabled = true\npath = \"cache.db\"\n"
	if err := os.WriteFile(filepath.Join(dir, "stackc.toml"), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRealMainClosesStore(t *testing.T) {
	tests := []struct {
		name     string
		asm      string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{"success", "add.sasm", 0, "Result: 0\n", ""},
		{"error", "missing.sasm", 1, "", "Error: file '"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := cliFixture(t)
			opened := trackStores(t)

			var stdout, stderr bytes.Buffer
			code := realMain([]string{"-config", dir,
				filepath.Join(dir, tt.asm), filepath.Join(dir, "in.txt"), filepath.Join(dir, "out.txt"),
			}, &stdout, &stderr)

			if code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d (stderr %q)", code, tt.wantCode, stderr.String())
			}
			if !strings.Contains(stdout.String(), tt.wantOut) {
				t.Errorf("stdout = %q, want it to contain %q", stdout.String(), tt.wantOut)
			}
			if !strings.HasPrefix(stderr.String(), tt.wantErr) {
				t.Errorf("stderr = %q, want prefix %q", stderr.String(), tt.wantErr)
			}

			if len(*opened) != 1 {
				t.Fatalf("opened %d stores, want 1", len(*opened))
			}
			if _, _, err := (*opened)[0].Counts(context.Background()); err == nil {
				t.Error("store still open after realMain returned")
			}
		})
	}
}

func TestRealMainUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := realMain([]string{"-no-cache", "only-one.sasm"}, &stdout, &stderr); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Usage: stackc") {
		t.Errorf("stderr missing usage:\n%s", stderr.String())
	}

	stderr.Reset()
	if code := realMain([]string{"-bogus"}, &stdout, &stderr); code != 2 {
		t.Errorf("exit code for unknown flag = %d, want 2", code)
	}
}

// ============ Config Tests ============

func TestLoadManifestDefaults(t *testing.T) {
	wd := t.TempDir()
	m, err := loadManifest("", wd)
	if err != nil {
		t.Fatalf("loadManifest: %v", err)
	}
	if m.Dir != wd {
		t.Errorf("Dir = %q, want %q", m.Dir, wd)
	}
	if m.CachePath() != filepath.Join(wd, ".stackc", "cache.db") {
		t.Errorf("CachePath = %q", m.CachePath())
	}
}

func TestLoadManifestExplicitDir(t *testing.T) {
	dir := writeFiles(t, map[string]string{"stackc.toml": "[compile]\nemit-ir = true\n"})
	m, err := loadManifest(dir, t.TempDir())
	if err != nil {
		t.Fatalf("loadManifest: %v", err)
	}
	if !m.Compile.EmitIR {
		t.Error("emit-ir not loaded from explicit config dir")
	}

	if _, err := loadManifest(t.TempDir(), dir); err == nil {
		t.Error("expected error for a config dir without stackc.toml")
	}
}

func TestVerbosityFlag(t *testing.T) {
	var v verbosity
	v.Set("")
	v.Set("")
	if int(v) != 2 || v.String() != "2" {
		t.Errorf("verbosity = %d, want 2", int(v))
	}
	if !v.IsBoolFlag() {
		t.Error("verbosity should be a bool flag")
	}
}
