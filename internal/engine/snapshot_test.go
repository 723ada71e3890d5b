package engine

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	img := loadSample(t)
	sm := NewSimManagerAtEntry(img, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, sm.Step(ctx))
	}
	sm.Active()[0].Regs["rax"] = 42

	path := filepath.Join(t.TempDir(), "snap.toml")
	require.NoError(t, SaveSnapshotFile(path, sm))

	got, err := LoadSnapshotFile(path, img, nil)
	require.NoError(t, err)
	assert.Equal(t, pcs(sm.Active()), pcs(got.Active()))
	assert.Equal(t, uint64(42), got.Active()[0].Regs["rax"])
	assert.Equal(t, []uint64{0x1000, 0x2000, 0x1005}, got.Active()[0].History)
	assert.Equal(t, 3, got.Steps())

	// New states must not reuse restored IDs.
	assert.Greater(t, got.NewState(0).ID, got.Active()[1].ID)
}

func TestSnapshot_IncompatibleVersion(t *testing.T) {
	img := loadSample(t)
	src := "format_version = 99\nimage = \"sample\"\n"

	sm, err := LoadSnapshot(strings.NewReader(src), img, nil)
	assert.Nil(t, sm)
	var ie *IncompatibleStateError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Detail, "format version 99")
}

func TestSnapshot_WrongImage(t *testing.T) {
	img := loadSample(t)
	var buf bytes.Buffer
	require.NoError(t, SaveSnapshot(&buf, NewSimManagerAtEntry(img, nil)))

	other := loadSample(t)
	other.Name = "other"
	_, err := LoadSnapshot(&buf, other, nil)
	var ie *IncompatibleStateError
	assert.ErrorAs(t, err, &ie)
}

func TestSnapshot_Garbage(t *testing.T) {
	_, err := LoadSnapshot(strings.NewReader("[[["), loadSample(t), nil)
	var le *LoadError
	assert.ErrorAs(t, err, &le)
}
