package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/leaplineage/pkg/adapters/sqlite"
)

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		info    BuildInfo
		wantOut []string
	}{
		{
			name:    "release build",
			info:    BuildInfo{Version: "0.1.0", GitCommit: "abc1234", BuildDate: "2026-01-02"},
			wantOut: []string{"LeapLineage v0.1.0", "lineage graph", "commit: abc1234, built: 2026-01-02"},
		},
		{
			name:    "dev build",
			info:    BuildInfo{Version: "dev", GitCommit: "unknown", BuildDate: "unknown"},
			wantOut: []string{"LeapLineage vdev", "commit: unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewVersionCommand(tt.info)
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)

			require.NoError(t, cmd.Execute())
			for _, want := range tt.wantOut {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestVersionCommand_ListsBackends(t *testing.T) {
	cmd := NewVersionCommand(BuildInfo{Version: "test"})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "graph backends: ")
	assert.Contains(t, buf.String(), "sqlite")
}
