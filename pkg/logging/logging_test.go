package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lj "gopkg.in/natefinch/lumberjack.v2"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{name: "empty defaults to info", level: "", expected: zerolog.InfoLevel},
		{name: "debug", level: "debug", expected: zerolog.DebugLevel},
		{name: "upper case", level: "WARN", expected: zerolog.WarnLevel},
		{name: "invalid", level: "loud", wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			level, err := ParseLevel(test.level)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, level)
		})
	}
}

func TestWriter_Defaults(t *testing.T) {
	assert.Nil(t, Config{}.Writer())

	w := Config{File: "/tmp/x.log", MaxSizeMB: -1}.Writer()
	l, ok := w.(*lj.Logger)
	require.True(t, ok)
	assert.Equal(t, DefaultMaxSizeMB, l.MaxSize)
	assert.Equal(t, DefaultMaxBackups, l.MaxBackups)
	assert.Equal(t, DefaultMaxAgeDays, l.MaxAge)

	w = Config{File: "/tmp/x.log", MaxSizeMB: 1, MaxBackups: 2, MaxAgeDays: 3, Compress: true}.Writer()
	l = w.(*lj.Logger)
	assert.Equal(t, 1, l.MaxSize)
	assert.Equal(t, 2, l.MaxBackups)
	assert.Equal(t, 3, l.MaxAge)
	assert.True(t, l.Compress)
}

func TestNew_Fallback(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Config{Level: "warn"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info().Msg("hidden")
	logger.Warn().Str("job_id", "j1").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"job_id":"j1"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobmonitor.log")
	var buf bytes.Buffer
	logger, closer, err := New(Config{File: path}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.Empty(t, buf.String())
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Config{Level: "nope"}, &bytes.Buffer{})
	assert.Error(t, err)
}
