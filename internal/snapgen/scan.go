package snapgen

import (
	"errors"
	"fmt"
	"go/ast"
	"go/constant"
	"go/parser"
	"go/token"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/librescoot/fsmsnap/snapshot"
)

// ErrNoStates is returned for a source file that declares no state constants.
var ErrNoStates = errors.New("no state constants")

// Machine is what the generator knows about one state machine.
type Machine struct {
	Name    string // e.g. "blinky"
	Ident   string // exported Go prefix, e.g. "Blinky"
	Source  string
	Package string
	// TypeExpr is the state type as written in the source, e.g. "fsmsnap.StateID".
	TypeExpr string
	// TypeImport is the import spec providing TypeExpr's qualifier, if any.
	TypeImport string
	States     []State
}

// State is one enumerated state.
type State struct {
	Const  string // constant declared in the source
	Offset string // generated offset constant
}

// ScanFile collects the constants of type stateType declared in a Go file,
// in declaration order. name may be empty to use the file's base name.
func ScanFile(filename, name, stateType string) (*Machine, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, nil, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	m := &Machine{
		Name:    name,
		Ident:   exportedIdent(name),
		Source:  filename,
		Package: file.Name.Name,
	}
	if !token.IsIdentifier(m.Ident) {
		return nil, fmt.Errorf("%s: machine name %q does not make a Go identifier", filename, name)
	}

	var qualifier string
	known := make(map[string]constant.Value)
	byValue := make(map[string]string)
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.CONST {
			continue
		}
		skipDecl := ignored(gen.Doc)

		// Specs without type or values repeat the previous spec.
		var (
			typ  ast.Expr
			vals []ast.Expr
		)
		for n, spec := range gen.Specs {
			vs := spec.(*ast.ValueSpec)
			if vs.Type != nil || len(vs.Values) > 0 {
				typ = vs.Type
				vals = vs.Values
			}

			values := make([]constant.Value, len(vs.Names))
			for i, id := range vs.Names {
				if i >= len(vals) {
					break
				}
				if v, ok := constValue(vals[i], n, known, stateType); ok {
					values[i] = v
					known[id.Name] = v
				}
			}

			q, ok := matchType(typ, stateType)
			if !ok || skipDecl || ignored(vs.Doc, vs.Comment) {
				continue
			}
			if m.TypeExpr == "" {
				qualifier = q
				m.TypeExpr = stateType
				if q != "" {
					m.TypeExpr = q + "." + stateType
				}
			} else if q != qualifier {
				return nil, fmt.Errorf("%s: states use both %s and %s.%s", filename, m.TypeExpr, q, stateType)
			}

			for i, id := range vs.Names {
				if id.Name == "_" {
					continue
				}
				if v := values[i]; v != nil {
					key := v.ExactString()
					if prev, ok := byValue[key]; ok {
						return nil, fmt.Errorf("%s: %s and %s both have value %s: %w", filename, prev, id.Name, key, snapshot.ErrDuplicateState)
					}
					byValue[key] = id.Name
				}
				m.States = append(m.States, State{
					Const:  id.Name,
					Offset: m.Ident + stateSuffix(id.Name),
				})
			}
		}
	}

	if len(m.States) == 0 {
		return nil, fmt.Errorf("%s: %w of type %s", filename, ErrNoStates, stateType)
	}
	if len(m.States) > snapshot.MaxStates {
		return nil, fmt.Errorf("%s: %d states: %w", filename, len(m.States), snapshot.ErrTooManyStates)
	}
	if err := checkOffsets(m); err != nil {
		return nil, err
	}

	if qualifier != "" {
		spec, err := importFor(file, qualifier)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		m.TypeImport = spec
	}
	return m, nil
}

// matchType reports whether typ names stateType, returning its qualifier.
func matchType(typ ast.Expr, stateType string) (string, bool) {
	switch t := typ.(type) {
	case *ast.Ident:
		return "", t.Name == stateType
	case *ast.SelectorExpr:
		x, ok := t.X.(*ast.Ident)
		if !ok || t.Sel.Name != stateType {
			return "", false
		}
		return x.Name, true
	}
	return "", false
}

// ignoreDirective excludes a constant, or a whole const declaration, from
// the enumeration.
const ignoreDirective = "//snapgen:ignore"

func ignored(groups ...*ast.CommentGroup) bool {
	for _, g := range groups {
		if g == nil {
			continue
		}
		for _, c := range g.List {
			if strings.TrimSpace(c.Text) == ignoreDirective {
				return true
			}
		}
	}
	return false
}

// constValue folds the constant expressions state values are commonly
// written with. It reports false for anything it cannot evaluate.
func constValue(expr ast.Expr, index int, known map[string]constant.Value, stateType string) (constant.Value, bool) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		v := constant.MakeFromLiteral(e.Value, e.Kind, 0)
		return v, v.Kind() != constant.Unknown
	case *ast.Ident:
		if e.Name == "iota" {
			return constant.MakeInt64(int64(index)), true
		}
		v, ok := known[e.Name]
		return v, ok
	case *ast.ParenExpr:
		return constValue(e.X, index, known, stateType)
	case *ast.CallExpr:
		if _, ok := matchType(e.Fun, stateType); ok && len(e.Args) == 1 {
			return constValue(e.Args[0], index, known, stateType)
		}
	case *ast.BinaryExpr:
		x, ok := constValue(e.X, index, known, stateType)
		if !ok {
			return nil, false
		}
		y, ok := constValue(e.Y, index, known, stateType)
		if !ok || x.Kind() != y.Kind() {
			return nil, false
		}
		switch {
		case e.Op == token.ADD && (x.Kind() == constant.String || x.Kind() == constant.Int):
			return constant.BinaryOp(x, e.Op, y), true
		case (e.Op == token.SUB || e.Op == token.MUL) && x.Kind() == constant.Int:
			return constant.BinaryOp(x, e.Op, y), true
		}
	}
	return nil, false
}

// importFor finds the import spec that binds qualifier in file.
func importFor(file *ast.File, qualifier string) (string, error) {
	for _, imp := range file.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		if imp.Name != nil {
			if imp.Name.Name == qualifier {
				return qualifier + " " + strconv.Quote(p), nil
			}
			continue
		}
		if path.Base(p) == qualifier {
			return strconv.Quote(p), nil
		}
	}
	return "", fmt.Errorf("no import provides %q", qualifier)
}

func checkOffsets(m *Machine) error {
	seen := make(map[string]string, len(m.States))
	reserved := m.Ident + "NumStates"
	for _, s := range m.States {
		if s.Offset == reserved {
			return fmt.Errorf("%s: offset name %s of %s collides with the state count", m.Source, s.Offset, s.Const)
		}
		if prev, ok := seen[s.Offset]; ok {
			return fmt.Errorf("%s: %s and %s both map to offset name %s", m.Source, prev, s.Const, s.Offset)
		}
		seen[s.Offset] = s.Const
	}
	return nil
}

// stateSuffix drops a leading "state"/"State" word from a constant name and
// returns the rest as an exported identifier part.
func stateSuffix(name string) string {
	for _, prefix := range []string{"State", "state"} {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok || rest == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(rest)
		if unicode.IsUpper(r) || unicode.IsDigit(r) || r == '_' {
			name = rest
			break
		}
	}
	return exportedIdent(name)
}
