package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/forgestack/forge/pkg/identity"
	"github.com/forgestack/forge/pkg/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{input: "", expected: FormatText},
		{input: "text", expected: FormatText},
		{input: "json", expected: FormatJSON},
		{input: "yaml", expected: FormatYAML},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			format, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, format)
		})
	}
}

func TestEncode(t *testing.T) {
	slot, balance := uint64(42), uint64(1_000_000)
	st := status.DeploymentStatus{Deployed: true, Slot: &slot, Balance: &balance}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, FormatJSON, st, false))
		assert.JSONEq(t, `{"deployed":true,"slot":42,"balance":1000000}`, buf.String())
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, FormatYAML, status.NotDeployed(), false))
		assert.Equal(t, "deployed: false\nslot: null\nbalance: null\n", buf.String())
	})

	t.Run("yaml identity", func(t *testing.T) {
		id := identity.Derive([]byte("program"))
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, FormatYAML, map[string]identity.Identity{"identity": id}, false))
		assert.Equal(t, "identity: "+id.String()+"\n", buf.String())
	})

	t.Run("color", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, FormatJSON, st, true))
		assert.Contains(t, buf.String(), "\x1b[")
		assert.Contains(t, buf.String(), "deployed")
	})

	t.Run("text is not encodable", func(t *testing.T) {
		assert.Error(t, Encode(&bytes.Buffer{}, FormatText, st, false))
	})
}

func TestRenderError(t *testing.T) {
	stderr := strings.Repeat("error[E0425]: cannot find value ", 6)
	rendered := RenderError(stderr, 60)

	for _, line := range strings.Split(rendered, "\n") {
		assert.LessOrEqual(t, len([]rune(stripANSI(line))), 60)
	}
	assert.Contains(t, stripANSI(rendered), "Error:")
}

func TestRenderTable(t *testing.T) {
	table := NewTable([]string{"IDENTITY", "STATUS"})
	table.AddRow("abc", "deployed")
	table.AddRow("defghijklmnop", "built")

	rendered := stripANSI(RenderTable(table))
	assert.Contains(t, rendered, "IDENTITY")
	assert.Contains(t, rendered, "defghijklmnop")
	assert.Equal(t, len("defghijklmnop")+4, table.ColumnWidth[0])

	assert.Panics(t, func() { table.AddRow("only one") })
}

// stripANSI drops escape sequences so widths can be compared.
func stripANSI(s string) string {
	var out strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}
