package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/dshills/tokeniter/internal/document"
	"github.com/dshills/tokeniter/internal/token"
)

// tokenRecord is the serialised form of one token.
type tokenRecord struct {
	Line  int    `yaml:"line" msgpack:"line"`
	Start uint32 `yaml:"start" msgpack:"start"`
	End   uint32 `yaml:"end" msgpack:"end"`
	Type  string `yaml:"type" msgpack:"type"`
	Text  string `yaml:"text" msgpack:"text"`
	Pop   uint8  `yaml:"pop,omitempty" msgpack:"pop,omitempty"`
	Push  string `yaml:"push,omitempty" msgpack:"push,omitempty"`
}

// fileRecord is the serialised token listing of one file.
type fileRecord struct {
	Path     string        `yaml:"path" msgpack:"path"`
	Language string        `yaml:"language" msgpack:"language"`
	Lines    int           `yaml:"lines" msgpack:"lines"`
	EndState string        `yaml:"end_state" msgpack:"end_state"`
	Tokens   []tokenRecord `yaml:"tokens" msgpack:"tokens"`
}

func newTokenRecord(line *document.Line, t token.Token) tokenRecord {
	return tokenRecord{
		Line:  line.Index() + 1,
		Start: t.StartCol,
		End:   t.EndCol,
		Type:  t.Type.String(),
		Text:  t.Text,
		Pop:   t.Pop,
		Push:  t.Push,
	}
}

var (
	typeColor  = color.New(color.FgCyan)
	stateColor = color.New(color.FgYellow)
	markColor  = color.New(color.FgGreen, color.Bold)
)

// writeToken writes one token as tab-separated fields:
// LINE:START-END, type, quoted text and any pop or push.
func writeToken(w io.Writer, r tokenRecord) {
	fmt.Fprintf(w, "%d:%d-%d\t%s\t%q", r.Line, r.Start, r.End, typeColor.Sprint(r.Type), r.Text)
	if r.Pop > 0 {
		fmt.Fprintf(w, "\tpop=%d", r.Pop)
	}
	if r.Push != "" {
		fmt.Fprintf(w, "\tpush=%s", r.Push)
	}
	fmt.Fprintln(w)
}

func writeFiles(w io.Writer, format string, files []fileRecord) error {
	switch format {
	case "text":
		for _, f := range files {
			if len(files) > 1 {
				fmt.Fprintf(w, "== %s (%s)\n", f.Path, f.Language)
			}
			for _, r := range f.Tokens {
				writeToken(w, r)
			}
			fmt.Fprintf(w, "end state: %s\n", stateColor.Sprint(f.EndState))
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(files); err != nil {
			return err
		}
		return enc.Close()
	case "msgpack":
		return msgpack.NewEncoder(w).Encode(files)
	default:
		return fmt.Errorf("unknown format %q (want text, yaml or msgpack)", format)
	}
}

// writeCaret writes the text of line with a caret under byte column col.
// Wide runes before the column are accounted for.
func writeCaret(w io.Writer, line *document.Line, col int) {
	text := line.Text()
	fmt.Fprintf(w, "%5d | %s\n", line.Index()+1, text)
	pad := runewidth.StringWidth(text[:col])
	fmt.Fprintf(w, "      | %s%s\n", strings.Repeat(" ", pad), markColor.Sprint("^"))
}

func tokenTexts(tokens []token.Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = fmt.Sprintf("%q", t.Text)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
