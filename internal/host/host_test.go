package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		root string
		want string
	}{
		{"/proj/src/main.go", "/proj", "src/main.go"},
		{"/proj/src/../README.md", "/proj", "README.md"},
		{"/other/file.go", "/proj", "/other/file.go"},
		{"/project2/file.go", "/proj", "/project2/file.go"},
		{"relative/file.go", "/proj", "relative/file.go"},
		{"./a/b.txt", "/proj", "a/b.txt"},
		{"/proj/a.txt", "", "/proj/a.txt"},
		{"", "/proj", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.name, tt.root))
		})
	}
}

func TestSplitDirectiveString(t *testing.T) {
	assert.Equal(t, "none", SplitNone.String())
	assert.Equal(t, "vsplit", SplitVertical.String())
	assert.Equal(t, "split", SplitHorizontal.String())
	assert.Equal(t, "tabedit", SplitTab.String())
}
