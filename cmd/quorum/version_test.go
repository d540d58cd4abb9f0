package main

import (
	"bytes"
	"runtime"
	rdebug "runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintVersion(t *testing.T) {
	tests := []struct {
		name   string
		info   *rdebug.BuildInfo
		want   []string
		absent []string
	}{
		{
			name: "no build info",
			want: []string{"QUORUM dev", "Git commit: unknown", "Build time: unknown"},
		},
		{
			name: "vcs stamps",
			info: &rdebug.BuildInfo{
				Main: rdebug.Module{Version: "v1.2.0"},
				Settings: []rdebug.BuildSetting{
					{Key: "vcs.revision", Value: "abc123"},
					{Key: "vcs.time", Value: "2024-05-01T10:00:00Z"},
					{Key: "vcs.modified", Value: "true"},
				},
			},
			want: []string{"QUORUM v1.2.0", "Git commit: abc123 (modified)", "Build time: 2024-05-01T10:00:00Z"},
		},
		{
			name:   "devel module version",
			info:   &rdebug.BuildInfo{Main: rdebug.Module{Version: "(devel)"}},
			want:   []string{"QUORUM dev"},
			absent: []string{"(devel)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printVersion(&buf, tt.info)
			out := buf.String()
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, a := range tt.absent {
				assert.NotContains(t, out, a)
			}
			assert.Contains(t, out, runtime.Version())
		})
	}
}
