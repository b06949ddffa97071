package completion

import (
	"fmt"
	"strings"

	"github.com/dukex/scriptpanel/pkg/models"
)

// Candidate is an identifier offered by the completion engine.
type Candidate struct {
	Label  string `json:"label"`
	Detail string `json:"detail"`
}

// EscapeLabel makes a label safe to embed in a double quoted string literal.
func EscapeLabel(label string) string {
	label = strings.ReplaceAll(label, `\`, `\\`)

	return strings.ReplaceAll(label, `"`, `\"`)
}

// CandidatesFromInitialData builds the candidate list in schema order: the
// columns of every input port followed by the flow variables. Unsupported
// items are skipped and labels are escaped. A column and a flow variable
// sharing a name are both offered, each with its own detail.
func CandidatesFromInitialData(data models.InitialData) []Candidate {
	candidates := make([]Candidate, 0)

	add := func(label, detail string) {
		candidates = append(candidates, Candidate{Label: label, Detail: detail})
	}

	for _, input := range data.InputObjects {
		for _, item := range input.SubItems {
			if !item.IsSupported() {
				continue
			}

			add(EscapeLabel(item.Name), fmt.Sprintf("Column in %s (%s)", input.Name, item.Type))
		}
	}

	for _, item := range data.FlowVariables.SubItems {
		if !item.IsSupported() {
			continue
		}

		add(EscapeLabel(item.Name), fmt.Sprintf("Flow variable (%s)", item.Type))
	}

	return candidates
}
