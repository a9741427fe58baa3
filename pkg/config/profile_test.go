package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/armlink/pkg/arm"
	"github.com/robotalks/armlink/pkg/l0/vision"
)

func TestBuiltinProfiles(t *testing.T) {
	testCases := []struct {
		name      string
		maxValues int
	}{
		{ProfileStandard, 20},
		{ProfileExtended, 30},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Load("", tc.name)
			require.NoError(t, err)
			conf, err := p.VisionConfig()
			require.NoError(t, err)
			require.Equal(t, tc.maxValues, conf.MaxValues)
			require.Equal(t, 3*time.Second, conf.Timeout)
			require.Equal(t, 256, conf.BufferSize)
			require.Equal(t, vision.DefaultErrorSentinel, conf.ErrorSentinel)
			require.Equal(t, byte('\n'), conf.Delimiter)
			require.Equal(t, byte(','), conf.Separator)
			require.Equal(t, vision.DefaultPollInterval, conf.PollInterval)
			every, err := p.PollEvery()
			require.NoError(t, err)
			require.Equal(t, 200*time.Millisecond, every)
			require.Equal(t, "SCAN", p.PollCommand)
			require.Equal(t, arm.StepperConfig{Count: 5, StepAngle: 1.8}, p.StepperConfig())
		})
	}
}

func TestLoadMissingProfile(t *testing.T) {
	_, err := Load("", "nope")
	require.True(t, errors.Is(err, ErrProfileNotFound))
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
profile "bench" {
  timeout        = "500ms"
  max_values     = 12
  error_sentinel = "NAK"
  delimiter      = "\r"
  separator      = ";"
  trace          = true
  update_interval = "5ms"
}
`), 0644))

	p, err := Load(path, "bench")
	require.NoError(t, err)
	conf, err := p.VisionConfig()
	require.NoError(t, err)
	require.Equal(t, 500*time.Millisecond, conf.Timeout)
	require.Equal(t, 12, conf.MaxValues)
	require.Equal(t, "NAK", conf.ErrorSentinel)
	require.Equal(t, byte('\r'), conf.Delimiter)
	require.Equal(t, byte(';'), conf.Separator)
	require.True(t, conf.Trace)
	require.Equal(t, 5*time.Millisecond, conf.PollInterval)
	require.Equal(t, vision.DefaultBufferSize, conf.BufferSize)
	require.Equal(t, arm.StepperConfig{Count: arm.DefaultStepperCount, StepAngle: arm.DefaultStepAngle}, p.StepperConfig())

	_, err = Load(filepath.Join(t.TempDir(), "missing.hcl"), "bench")
	require.Error(t, err)
}

func TestInvalidProfiles(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"bad timeout", `timeout = "soon"`},
		{"bad poll interval", `poll_interval = "1 minute"`},
		{"long delimiter", `delimiter = "ab"`},
		{"same delimiter and separator", `separator = "\n"`},
		{"tiny buffer", `buffer_size = 1`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Decode([]byte("profile \"x\" {\n"+tc.body+"\n}\n"), "test.hcl")
			require.NoError(t, err)
			p, err := f.Profile("x")
			require.NoError(t, err)
			_, err = p.VisionConfig()
			require.Error(t, err)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte(`profile "x" {`), "broken.hcl")
	require.Error(t, err)
	_, err = Decode([]byte(`profile "x" { colour = "red" }`), "unknown.hcl")
	require.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	p, err := Load("", ProfileExtended)
	require.NoError(t, err)
	f, err := Decode(p.Encode(), "encoded.hcl")
	require.NoError(t, err)
	decoded, err := f.Profile(ProfileExtended)
	require.NoError(t, err)
	require.Equal(t, p, decoded)
}
