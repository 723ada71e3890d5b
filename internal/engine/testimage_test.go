package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleImage = `
name = "sample"
arch = "toy64"
entry = 0x1000

[[blocks]]
addr = 0x1000
size = 5
instructions = [0x1000]
kind = "call"
successors = [0x2000]

[[blocks]]
addr = 0x1005
size = 4
instructions = [0x1005, 0x1007]
successors = [0x1010, 0x1020]

[[blocks]]
addr = 0x1010
size = 2
kind = "exit"

[[blocks]]
addr = 0x1020
size = 2
kind = "exit"

[[blocks]]
addr = 0x2000
size = 1
kind = "ret"
`

func loadSample(t *testing.T) *Image {
	t.Helper()
	img, err := NewTOMLLoader().LoadFromReader("sample.toml", strings.NewReader(sampleImage))
	require.NoError(t, err)
	return img
}
