package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTMLSanitized(t *testing.T) {
	svc := NewMarkdownService()

	tests := []struct {
		name        string
		input       string
		contains    []string
		notContains []string
	}{
		{
			name:     "bold and strikethrough",
			input:    "**Risolto** ~~aperto~~",
			contains: []string{"<strong>Risolto</strong>", "<del>aperto</del>"},
		},
		{
			name:        "script tags are stripped",
			input:       "ciao <script>alert(1)</script>",
			contains:    []string{"ciao"},
			notContains: []string{"<script>", "alert(1)"},
		},
		{
			name:     "bare links become anchors",
			input:    "vedi https://example.com",
			contains: []string{`href="https://example.com"`, "nofollow"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := svc.ToHTMLSanitized(tt.input)
			require.NoError(t, err)
			for _, c := range tt.contains {
				assert.Contains(t, out, c)
			}
			for _, c := range tt.notContains {
				assert.NotContains(t, out, c)
			}
		})
	}
}
