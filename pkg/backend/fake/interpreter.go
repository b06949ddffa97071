package fake

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dukex/scriptpanel/pkg/models"
)

var (
	assignPattern   = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.+)$`)
	printVarPattern = regexp.MustCompile(`^print\("""(.*)\n""" \+ str\(([A-Za-z_][A-Za-z0-9_.]*)\)\)$`)
	printPattern    = regexp.MustCompile(`^print\((.*)\)$`)
	raisePattern    = regexp.MustCompile(`^raise\s+([A-Za-z_][A-Za-z0-9_]*)(?:\((.*)\))?$`)
)

const viewVariable = "knio.output_view"

// interpreter evaluates a tiny subset of python: assignments of literals,
// print calls and raise statements.
type interpreter struct {
	vars  map[string]models.WorkspaceVariable
	order []string
	view  bool
}

func newInterpreter() *interpreter {
	return &interpreter{vars: make(map[string]models.WorkspaceVariable)}
}

type scriptError struct {
	kind      string
	message   string
	line      int
	statement string
}

func (e *scriptError) traceback() []string {
	return []string{
		"Traceback (most recent call last):",
		fmt.Sprintf(`  File "<string>", line %d, in <module>`, e.line),
		"    " + e.statement,
		fmt.Sprintf("%s: %s", e.kind, e.message),
	}
}

// exec runs script and returns the printed output.
func (in *interpreter) exec(script string) ([]string, *scriptError) {
	var output []string

	for i, raw := range strings.Split(script, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "import ") {
			continue
		}

		text, err := in.statement(line, i+1)
		if err != nil {
			return output, err
		}

		if text != "" {
			output = append(output, text)
		}
	}

	return output, nil
}

// printVariable statements span two lines, so they are matched before the
// script is split.
func (in *interpreter) execStatement(script string) ([]string, *scriptError) {
	if m := printVarPattern.FindStringSubmatch(script); m != nil {
		v, ok := in.vars[m[2]]
		if !ok {
			return nil, nameError(m[2], 1, script)
		}

		return []string{m[1] + "\n" + v.Value + "\n"}, nil
	}

	return in.exec(script)
}

func (in *interpreter) statement(line string, n int) (string, *scriptError) {
	if m := raisePattern.FindStringSubmatch(line); m != nil {
		return "", &scriptError{kind: m[1], message: unquote(m[2]), line: n, statement: line}
	}

	if m := printPattern.FindStringSubmatch(line); m != nil {
		arg := strings.TrimSpace(m[1])
		if v, ok := in.vars[arg]; ok {
			return v.Value + "\n", nil
		}

		if isString(arg) {
			return unquote(arg) + "\n", nil
		}

		if _, err := strconv.ParseFloat(arg, 64); err == nil {
			return arg + "\n", nil
		}

		return "", nameError(arg, n, line)
	}

	if strings.HasPrefix(line, viewVariable) {
		in.view = true

		return "", nil
	}

	if m := assignPattern.FindStringSubmatch(line); m != nil {
		name, expr := m[1], strings.TrimSpace(m[2])

		v, err := in.evaluate(expr, n, line)
		if err != nil {
			return "", err
		}

		v.Name = name
		in.set(v)

		return "", nil
	}

	return "", &scriptError{kind: "SyntaxError", message: "invalid syntax", line: n, statement: line}
}

func (in *interpreter) evaluate(expr string, n int, line string) (models.WorkspaceVariable, *scriptError) {
	switch {
	case isString(expr):
		return models.WorkspaceVariable{Type: "str", Value: unquote(expr)}, nil
	case expr == "True" || expr == "False":
		return models.WorkspaceVariable{Type: "bool", Value: expr}, nil
	case expr == "None":
		return models.WorkspaceVariable{Type: "NoneType", Value: expr}, nil
	}

	if _, err := strconv.ParseInt(expr, 10, 64); err == nil {
		return models.WorkspaceVariable{Type: "int", Value: expr}, nil
	}

	if _, err := strconv.ParseFloat(expr, 64); err == nil {
		return models.WorkspaceVariable{Type: "float", Value: expr}, nil
	}

	if v, ok := in.vars[expr]; ok {
		return v, nil
	}

	return models.WorkspaceVariable{}, nameError(expr, n, line)
}

func (in *interpreter) set(v models.WorkspaceVariable) {
	if _, ok := in.vars[v.Name]; !ok {
		in.order = append(in.order, v.Name)
	}

	in.vars[v.Name] = v
}

func (in *interpreter) workspace() models.Workspace {
	workspace := make(models.Workspace, 0, len(in.order))
	for _, name := range in.order {
		workspace = append(workspace, in.vars[name])
	}

	return workspace
}

func nameError(name string, n int, line string) *scriptError {
	return &scriptError{kind: "NameError", message: fmt.Sprintf("name '%s' is not defined", name), line: n, statement: line}
}

func isString(s string) bool {
	return len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0]
}

func unquote(s string) string {
	if isString(s) {
		return s[1 : len(s)-1]
	}

	return s
}
