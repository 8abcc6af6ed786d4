package remote

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		path   string
		quoted string
	}{
		{"/data", "'/data'"},
		{"/with space", "'/with space'"},
		{"/it's", `'/it'\''s'`},
		{"~", "~"},
		{"~/docs", "~/'docs'"},
		{"/a;rm -rf /", "'/a;rm -rf /'"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.quoted, quote(tt.path))
	}
}

func TestListingCommands(t *testing.T) {
	commands := listingCommands("/srv", 4)

	assert.Len(t, commands, 2)
	assert.Equal(t, `find '/srv' -maxdepth 4 -printf '%p|%y|%s\n' 2>/dev/null`, commands[0])
	assert.True(t, strings.HasPrefix(commands[1], "find '/srv' -maxdepth 4 -exec sh -c"))
	assert.Contains(t, commands[1], `printf "%s|%s|%s\n" "$f" "$t" "$s"`)
	assert.Contains(t, commands[1], `stat -c%s "$f"`)
}

func TestDocumentCommand(t *testing.T) {
	assert.Equal(t, "dux scan --json '/srv/data'", documentCommand("dux", "/srv/data"))
	assert.Equal(t, "command -v dux 2>/dev/null || true", lookupCommand("dux"))
}
