package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/tracewright/internal/config"
)

func TestVersionCommand(t *testing.T) {
	cmd := NewCommand(BuildInfo{Version: "1.2.3", Commit: "abc", Date: "today"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "tracewright 1.2.3 (commit abc, built today)\n", out.String())
}

func TestRootRejectsBadLogLevel(t *testing.T) {
	cmd := NewCommand(BuildInfo{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--log-level", "loud", "version"})

	var verr *config.ValidationError
	assert.ErrorAs(t, cmd.Execute(), &verr)
}

func TestRunSession(t *testing.T) {
	g := &globals{cfg: config.Default(), logger: zerolog.Nop()}
	in := strings.NewReader("help\nbp add 0x10\nbp list\nbogus\nquit\nbp add 0x20\n")
	var out bytes.Buffer

	require.NoError(t, runSession(context.Background(), g, "", "", in, &out))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, prompt))
	assert.Contains(t, text, "breakpoint 1:")
	assert.Contains(t, text, `error: unknown command "bogus"`)
	assert.NotContains(t, text, "breakpoint 2:")
}

func TestRunSessionEndsOnEOF(t *testing.T) {
	g := &globals{cfg: config.Default(), logger: zerolog.Nop()}
	var out bytes.Buffer

	require.NoError(t, runSession(context.Background(), g, "", "", strings.NewReader("status\n"), &out))
	assert.Contains(t, out.String(), "error: no current debugger")
}
