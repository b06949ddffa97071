package completion_test

import (
	"testing"

	"github.com/dukex/scriptpanel/pkg/completion"
	"github.com/stretchr/testify/assert"
)

func TestQuotes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		before, after     string
		leading, trailing string
	}{
		{"", "", `"`, `"`},
		{`"`, `"`, "", ""},
		{"'", "'", "", ""},
		{`"`, "", "", `"`},
		{"'", "", "", "'"},
		{"", `"`, `"`, ""},
		{"", "'", "'", ""},
		{`"`, "'", "", `"`},
		{"'", `"`, "", "'"},
		{"(", ")", `"`, `"`},
		{"[", "]", `"`, `"`},
		{"", ".", `"`, `"`},
	}

	for _, tt := range tests {
		t.Run(tt.before+"|"+tt.after, func(t *testing.T) {
			t.Parallel()

			leading, trailing := completion.Quotes(tt.before, tt.after)
			assert.Equal(t, tt.leading, leading)
			assert.Equal(t, tt.trailing, trailing)
		})
	}
}

func TestQuotes_DotSuppressesQuoting(t *testing.T) {
	t.Parallel()

	for _, after := range []string{"", `"`, "'", ".", ")"} {
		leading, trailing := completion.Quotes(".", after)
		assert.Empty(t, leading, "after %q", after)
		assert.Empty(t, trailing, "after %q", after)
	}
}
