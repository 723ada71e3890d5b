package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceFromState(t *testing.T) {
	sm := NewSimManagerAtEntry(loadSample(t), nil)
	require.NoError(t, sm.Step(context.Background()))
	require.NoError(t, sm.Step(context.Background()))

	tr := TraceFromState("run", sm.Active()[0])
	assert.Equal(t, []uint64{0x1000, 0x2000, 0x1005}, tr.PCs)
	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, uint64(0x2000), tr.At(1))
}

func TestTrace_WriteAndLoad(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrace(&buf, &Trace{Name: "t", PCs: []uint64{1, 2, 3}}))

	path := filepath.Join(t.TempDir(), "t.toml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	tr, err := LoadTrace(path)
	require.NoError(t, err)
	assert.Equal(t, "t", tr.Name)
	assert.Equal(t, []uint64{1, 2, 3}, tr.PCs)
}

func TestReadTrace_Empty(t *testing.T) {
	_, err := ReadTrace("empty", strings.NewReader(`name = "x"`))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "trace is empty", le.Reason)
}
