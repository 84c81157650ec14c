package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/hand"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	d, err := cfg.Glove.Build()
	require.NoError(t, err)
	assert.Equal(t, device.KindNova, d.Kind())
	assert.Equal(t, hand.Right, d.Side())
	assert.True(t, cfg.Session.QuickCalibration)
}

func TestLoad_KeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glovecore.yaml")
	data := `
server:
  addr: "127.0.0.1:9000"
glove:
  device: senseglove
  side: left
  simulated:
    rate: 120
session:
  calibration:
    min_stable_duration: 250ms
    auto_advance_samples: 40
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 120.0, cfg.Glove.Simulated.Rate)
	assert.Equal(t, 2*time.Second, cfg.Glove.Simulated.Period, "period keeps its default")
	assert.Equal(t, 250*time.Millisecond, cfg.Session.Calibration.MinStableDuration)
	assert.Equal(t, 40, cfg.Session.Calibration.AutoAdvanceSamples)
	assert.Equal(t, 20, cfg.Session.Calibration.MinSamplesPerStage, "min samples keeps its default")
	assert.True(t, cfg.Session.ClampToLimits)

	d, err := cfg.Glove.Build()
	require.NoError(t, err)
	assert.Equal(t, device.KindSenseGlove, d.Kind())
	assert.Equal(t, hand.Left, d.Side())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_CustomGlove(t *testing.T) {
	cfg, err := Parse([]byte(`
glove:
  device: custom
  name: bench rig
  side: right
  source: none
  bindings:
    - {channel: 0, finger: index, movements: [mcp_flexion, pip_flexion, dip_flexion]}
    - {channel: 1, finger: thumb, movements: [cmc_flexion]}
  range_min: [100, 200]
  range_max: [900, 800]
`))
	require.NoError(t, err)

	d, err := cfg.Glove.Build()
	require.NoError(t, err)
	custom, ok := d.(device.Custom)
	require.True(t, ok)
	assert.Equal(t, "bench rig", custom.Name)
	assert.Equal(t, 2, device.Channels(d))
	assert.Equal(t, []float32{100, 200}, device.DefaultRange(d).MinValues())
	assert.Equal(t, []float32{900, 800}, device.DefaultRange(d).MaxValues())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "server: [addr"},
		{"empty addr", "server: {addr: \"\"}"},
		{"unknown device", "glove: {device: gauntlet}"},
		{"unknown side", "glove: {side: middle}"},
		{"unknown source", "glove: {source: serial}"},
		{"bindings on built-in device", "glove: {device: nova, bindings: [{channel: 0, finger: index, movements: [mcp_flexion]}]}"},
		{"custom without bindings", "glove: {device: custom}"},
		{"unknown finger", "glove: {device: custom, bindings: [{channel: 0, finger: toe, movements: [mcp_flexion]}]}"},
		{"thumb movement on a finger", "glove: {device: custom, bindings: [{channel: 0, finger: index, movements: [cmc_twist]}]}"},
		{"range size mismatch", "glove: {device: custom, bindings: [{channel: 0, finger: index, movements: [mcp_flexion]}], range_min: [0, 0], range_max: [1, 1]}"},
		{"zero rate", "glove: {simulated: {rate: 0}}"},
		{"bad calibration", "session: {calibration: {stability_window: 1}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_NoneSourceSkipsSimulation(t *testing.T) {
	cfg, err := Parse([]byte("glove: {source: none, simulated: {rate: 0}}"))
	require.NoError(t, err)
	assert.Equal(t, SourceNone, cfg.Glove.Source)
}

func TestBuild_WrapsInvalidArgument(t *testing.T) {
	_, err := GloveConfig{Device: "nova", Side: "up"}.Build()
	assert.True(t, errors.Is(err, hand.ErrInvalidArgument))
}
