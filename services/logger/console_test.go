package logsvc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/scoda/scoda/core"
)

func TestConsoleLogger(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		log       func(l core.Logger)
		wantLevel string
		want      []string
	}{
		{
			name:      "info",
			log:       func(l core.Logger) { l.Info("RUN lookup: persona found", map[string]interface{}{"run": "**.***.678-5"}) },
			wantLevel: "INFO",
			want:      []string{"SCODA", "RUN lookup: persona found", "map[run:**.***.678-5]"},
		},
		{
			name:      "error with stack",
			log:       func(l core.Logger) { l.Error("admin command failed", errors.New("boom")) },
			wantLevel: "ERROR",
			want:      []string{"admin command failed boom", "TestConsoleLogger"},
		},
		{
			name:      "debug shown in debug mode",
			debug:     true,
			log:       func(l core.Logger) { l.Debug("checking", 42) },
			wantLevel: "DEBUG",
			want:      []string{"checking 42"},
		},
		{
			name: "debug hidden otherwise",
			log:  func(l core.Logger) { l.Debug("checking", 42) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			tt.log(NewConsoleLogger(buf, &core.Config{AppName: "scoda", Debug: tt.debug}))

			out := buf.String()
			if tt.wantLevel == "" {
				assert.Empty(t, out)
				return
			}
			assert.True(t, strings.Contains(out, tt.wantLevel), "output %q has no level %s", out, tt.wantLevel)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}
