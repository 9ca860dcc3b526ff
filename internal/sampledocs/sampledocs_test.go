package sampledocs

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS(t *testing.T) {
	entries, err := fs.ReadDir(FS(), ".")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "attendance_policy.md")
	assert.Len(t, names, 5)

	data, err := fs.ReadFile(FS(), "attendance_policy.md")
	require.NoError(t, err)
	assert.Contains(t, string(data), "75% attendance")
}
