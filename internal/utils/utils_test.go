package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		query   string
		maxLen  int
		wantErr bool
	}{
		{"lovely ?ay", 0, false},
		{"", 10, true},
		{"abc", 2, true},
		{"λό?ος", 6, false},
		{"a\x00b", 10, true},
		{"a\tb", 10, false},
		{string([]byte{0xff, 0xfe}), 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			err := ValidateQuery(tt.query, tt.maxLen)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCountGaps(t *testing.T) {
	assert.Equal(t, 2, CountGaps("?a?", "?"))
	assert.Equal(t, 0, CountGaps("cat", "?"))
	assert.Equal(t, 0, CountGaps("cat", ""))
}

func TestStripSymbols(t *testing.T) {
	got := StripSymbols([]string{"␂", "c", "a", "␃", "t"}, "␂", "␃")
	assert.Equal(t, []string{"c", "a", "t"}, got)
}

func TestExtractors(t *testing.T) {
	data := map[string]any{"n": int64(3), "f": 0.5, "s": "x", "b": true}

	n, ok := ExtractInt64(data, "n")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	f, ok := ExtractFloat(data, "f")
	assert.True(t, ok)
	assert.Equal(t, 0.5, f)

	f, ok = ExtractFloat(data, "n")
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	s, ok := ExtractString(data, "s")
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	_, ok = ExtractBool(data, "s")
	assert.False(t, ok)
}

func TestSaveAndLoadTOML(t *testing.T) {
	type section struct {
		Order int    `toml:"order"`
		Mask  string `toml:"mask"`
	}
	type doc struct {
		Model section `toml:"model"`
	}

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, EnsureDir(filepath.Dir(path)))
	require.NoError(t, SaveTOMLFile(doc{Model: section{Order: 3, Mask: "#"}}, path))
	assert.True(t, FileExists(path))

	var loaded doc
	require.NoError(t, LoadTOMLFile(path, &loaded))
	assert.Equal(t, 3, loaded.Model.Order)
	assert.Equal(t, "#", loaded.Model.Mask)

	raw, err := ParseTOMLWithRecovery(path)
	require.NoError(t, err)
	model, ok := ExtractSection(raw, "model")
	require.True(t, ok)
	assert.Equal(t, int64(3), model["order"])

	require.NoError(t, os.WriteFile(path, []byte("[model\norder = "), 0644))
	assert.Error(t, LoadTOMLFile(path, &loaded))
}
