package snapgen

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/tools/imports"
)

// SnapshotImport is the import path generated code uses for package snapshot.
const SnapshotImport = "github.com/librescoot/fsmsnap/snapshot"

var fileTemplate = template.Must(template.New("snapshot").Parse(`// Code generated by snapgen from {{.SourceBase}}. DO NOT EDIT.

package {{.Package}}

import (
{{- range .Imports}}
	{{.}}
{{- end}}
)

// Bit offsets of the {{.Name}} states in a snapshot.Mask.
const (
{{- range $i, $s := .States}}
	{{$s.Offset}}{{if eq $i 0}} = iota{{end}}
{{- end}}
	{{.Ident}}NumStates
)

// {{.Ident}}Snapshot enumerates the {{.Name}} states in offset order.
var {{.Ident}}Snapshot = snapshot.MustTable[{{.TypeExpr}}]({{printf "%q" .Name}},
{{- range .States}}
	{{.Const}},
{{- end}}
)

// {{.Ident}}CurrentState returns the mask of {{.Name}} states q is currently in.
func {{.Ident}}CurrentState(q snapshot.Querier[{{.TypeExpr}}]) snapshot.Mask {
	var current snapshot.Mask
{{- range .States}}
	current |= snapshot.Bit(q.IsInState({{.Const}}), {{.Offset}})
{{- end}}
	return current
}

// {{.Ident}}CurrentStateView is {{.Ident}}CurrentState evaluated inside a single view.
func {{.Ident}}CurrentStateView(v snapshot.Viewer[{{.TypeExpr}}]) snapshot.Mask {
	var current snapshot.Mask
	v.View(func(q snapshot.Querier[{{.TypeExpr}}]) {
		current = {{.Ident}}CurrentState(q)
	})
	return current
}
`))

type fileData struct {
	*Machine
	SourceBase string
	Imports    []string
}

// Render produces the formatted snapshot source for m.
func Render(m *Machine) ([]byte, error) {
	data := fileData{
		Machine:    m,
		SourceBase: filepath.Base(m.Source),
		Imports:    []string{`"` + SnapshotImport + `"`},
	}
	if m.TypeImport != "" {
		data.Imports = append(data.Imports, m.TypeImport)
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", m.Name, err)
	}

	out, err := imports.Process(OutputPath(m, ""), buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", m.Name, err)
	}
	return out, nil
}

// OutputPath returns override, or <machine>_snapshot.go next to the source.
func OutputPath(m *Machine, override string) string {
	if override != "" {
		return override
	}
	return filepath.Join(filepath.Dir(m.Source), strings.ToLower(m.Name)+"_snapshot.go")
}

// exportedIdent joins the words of name into an exported Go identifier.
func exportedIdent(name string) string {
	title := cases.Title(language.Und, cases.NoLower)
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	})
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(title.String(p))
	}
	return b.String()
}
