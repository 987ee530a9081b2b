package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/chazu/stackc/harness"
	"github.com/chazu/stackc/pkg/word"
)

// report is what the CLI prints after a run.
type report struct {
	Hash       string   `yaml:"hash"`
	Cached     bool     `yaml:"cached"`
	RunID      string   `yaml:"run_id,omitempty"`
	Bytecode   []string `yaml:"bytecode"`
	In         []string `yaml:"in"`
	Out        []string `yaml:"out"`
	Status     uint8    `yaml:"status"`
	StatusText string   `yaml:"status_text"`
	IR         string   `yaml:"ir,omitempty"`

	listing string
	inFull  string
	outFull string
}

func newReport(b *harness.Build, res *harness.Result, withIR bool) *report {
	r := &report{
		Hash:       b.Hash.String(),
		Cached:     res.Cached,
		In:         trimmed(&res.In),
		Out:        trimmed(&res.Out),
		Status:     uint8(res.Status),
		StatusText: res.Status.String(),
		listing:    b.Program.Disassemble(),
		inFull:     res.In.String(),
		outFull:    res.Out.String(),
	}
	if res.RunID != uuid.Nil {
		r.RunID = res.RunID.String()
	}
	for _, inst := range b.Program {
		r.Bytecode = append(r.Bytecode, inst.String())
	}
	if withIR {
		r.IR = b.Module.String()
	}
	return r
}

// trimmed renders the array up to its last non-zero element.
func trimmed(a *word.Array) []string {
	return a.Strings(a.Len())
}

// writeText prints the report. Plain output lists full arrays on single
// lines; terminal output shows the disassembly and trims trailing zeros.
func (r *report) writeText(w io.Writer, plain bool) error {
	var sb strings.Builder

	if r.IR != "" {
		sb.WriteString("Generated IR:\n")
		sb.WriteString(r.IR)
		if !strings.HasSuffix(r.IR, "\n") {
			sb.WriteByte('\n')
		}
	}

	if plain {
		fmt.Fprintf(&sb, "Bytecode: [%s]\n", strings.Join(r.Bytecode, ", "))
		fmt.Fprintf(&sb, "In array: %s\n", r.inFull)
		fmt.Fprintf(&sb, "Out array: %s\n", r.outFull)
		fmt.Fprintf(&sb, "Result: %d\n", r.Status)
	} else {
		sb.WriteString(r.listing)
		sb.WriteByte('\n')
		fmt.Fprintf(&sb, "%-10s %s\n", "Program:", shortHash(r.Hash, r.Cached))
		fmt.Fprintf(&sb, "%-10s %s\n", "In:", bracketed(r.In))
		fmt.Fprintf(&sb, "%-10s %s\n", "Out:", bracketed(r.Out))
		fmt.Fprintf(&sb, "%-10s %d (%s)\n", "Result:", r.Status, r.StatusText)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (r *report) writeYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

func bracketed(vals []string) string {
	s := "[" + strings.Join(vals, ", ")
	if len(vals) < word.ArrayCapacity {
		if len(vals) > 0 {
			s += ", "
		}
		s += "0..."
	}
	return s + "]"
}

func shortHash(h string, cached bool) string {
	if len(h) > 12 {
		h = h[:12]
	}
	if cached {
		h += " (cached)"
	}
	return h
}
