package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	for _, tc := range []struct {
		level string
		want  zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
	} {
		for _, dev := range []bool{false, true} {
			log, err := New(tc.level, dev)
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tc.want))
			if tc.want > zapcore.DebugLevel {
				assert.False(t, log.Core().Enabled(tc.want-1))
			}
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("chatty", false)
	require.Error(t, err)
}
