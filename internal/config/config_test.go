package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// isolate points every directory and file lookup at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmp, "state"))
	t.Setenv(EnvPrefix+"ENV_FILE", filepath.Join(tmp, "missing.env"))
	return tmp
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndGet(t *testing.T) {
	isolate(t)
	Load()

	require.Equal(t, "default", Get("missing", "default"))
	require.Equal(t, "bottom-right", Get("position", ""))
	require.Equal(t, 4*time.Second, GetDuration("duration", 0))
	require.True(t, GetBool("dismissible", false))
	require.Equal(t, 3, GetInt("visible_toasts", 0))
}

func TestDerivedPaths(t *testing.T) {
	tmp := isolate(t)
	Load()

	stateDir := filepath.Join(tmp, "state", "pulse-toast")
	require.Equal(t, stateDir, Get("state_dir", ""))
	require.Equal(t, filepath.Join(stateDir, "spool.jsonl"), Get("spool_path", ""))
	require.Equal(t, filepath.Join(stateDir, "history.db"), Get("history_path", ""))
	require.Equal(t, filepath.Join(tmp, "config", "pulse-toast", "hooks"), Get("hooks_dir", ""))
}

func TestExplicitPathsWinOverDerived(t *testing.T) {
	tmp := isolate(t)
	spool := filepath.Join(tmp, "elsewhere.jsonl")
	t.Setenv(EnvPrefix+"SPOOL_PATH", spool)
	t.Setenv(EnvPrefix+"STATE_DIR", filepath.Join(tmp, "custom-state"))
	Load()

	require.Equal(t, spool, Get("spool_path", ""))
	require.Equal(t, filepath.Join(tmp, "custom-state", "history.db"), Get("history_path", ""))
}

func TestConfigLoadingPrecedence(t *testing.T) {
	tmp := isolate(t)
	configFile := writeConfig(t, filepath.Join(tmp, "cfg"), `
position = "top-left"
visible_toasts = 5
hooks_enabled = false
hooks_failure_mode = "abort"
`)
	t.Setenv(EnvPrefix+"CONFIG_PATH", configFile)
	t.Setenv(EnvPrefix+"VISIBLE_TOASTS", "2")
	t.Setenv(EnvPrefix+"HOOKS_ENABLED", "yes")
	Load()

	require.Equal(t, "2", Get("visible_toasts", ""), "environment should override config file")
	require.Equal(t, "true", Get("hooks_enabled", ""), "environment should override config file")
	require.Equal(t, "top-left", Get("position", ""), "config file value should be used when not overridden")
	require.Equal(t, "abort", Get("hooks_failure_mode", ""))
}

func TestDotenvFeedsConfig(t *testing.T) {
	tmp := isolate(t)
	envFile := filepath.Join(tmp, "app.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"PULSE_TOAST_POSITION=top-center\nPULSE_TOAST_DURATION=1500\nUNRELATED=1\n"), 0o644))
	t.Setenv(EnvPrefix+"ENV_FILE", envFile)
	Load()

	require.Equal(t, "top-center", Get("position", ""))
	require.Equal(t, 1500*time.Millisecond, GetDuration("duration", 0))
	require.Equal(t, "fallback", Get("unrelated", "fallback"))
	_, set := os.LookupEnv("PULSE_TOAST_POSITION")
	require.False(t, set, ".env values must not leak into the process environment")
}

func TestDotenvLosesToEnvironmentAndFile(t *testing.T) {
	tmp := isolate(t)
	envFile := filepath.Join(tmp, "app.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"PULSE_TOAST_POSITION=top-center\nPULSE_TOAST_DISMISSIBLE=false\nPULSE_TOAST_VISIBLE_TOASTS=9\n"), 0o644))
	t.Setenv(EnvPrefix+"ENV_FILE", envFile)
	t.Setenv(EnvPrefix+"DISMISSIBLE", "true")
	t.Setenv(EnvPrefix+"CONFIG_PATH", writeConfig(t, filepath.Join(tmp, "cfg"), `visible_toasts = 4`))
	Load()

	require.Equal(t, "top-center", Get("position", ""))
	require.Equal(t, "true", Get("dismissible", ""))
	require.Equal(t, "4", Get("visible_toasts", ""))
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	isolate(t)
	t.Setenv(EnvPrefix+"POSITION", "middle")
	t.Setenv(EnvPrefix+"DURATION", "soon")
	t.Setenv(EnvPrefix+"VISIBLE_TOASTS", "-1")
	t.Setenv(EnvPrefix+"DISMISSIBLE", "maybe")
	t.Setenv(EnvPrefix+"LOGGING_LEVEL", "LOUD")
	Load()

	require.Equal(t, "bottom-right", Get("position", ""))
	require.Equal(t, "4s", Get("duration", ""))
	require.Equal(t, "3", Get("visible_toasts", ""))
	require.Equal(t, "true", Get("dismissible", ""))
	require.Equal(t, "info", Get("logging_level", ""))
}

func TestBooleanConfigNormalization(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"1", "true"},
		{"yes", "true"},
		{"ON", "true"},
		{"0", "false"},
		{"no", "false"},
		{"off", "false"},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			isolate(t)
			t.Setenv(EnvPrefix+"HISTORY_ENABLED", tt.value)
			Load()
			require.Equal(t, tt.want, Get("history_enabled", ""))
		})
	}
}

func TestDurationValidator(t *testing.T) {
	v := DurationValidator(false)
	tests := []struct {
		in   string
		want string
	}{
		{"", "4s"},
		{"0", "0s"},
		{"2500", "2.5s"},
		{"1m", "1m0s"},
		{"-1s", "4s"},
		{"later", "4s"},
	}
	for _, tt := range tests {
		got, err := v("duration", tt.in, "4s")
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "input %q", tt.in)
	}

	got, err := DurationValidator(true)("window", "", "4s")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestCreatesSampleConfig(t *testing.T) {
	tmp := isolate(t)
	Load()

	data, err := os.ReadFile(filepath.Join(tmp, "config", "pulse-toast", "config.toml"))
	require.NoError(t, err)
	require.Contains(t, string(data), "# pulse-toast configuration")
	require.Contains(t, string(data), "position = ")
	require.Contains(t, string(data), "bottom-right")
}

func TestSetOverridesValue(t *testing.T) {
	isolate(t)
	Load()

	Set("listen_addr", "127.0.0.1:9999")

	require.Equal(t, "127.0.0.1:9999", Get("listen_addr", ""))
}

func TestRegisterValidatorPanicsOnDuplicate(t *testing.T) {
	require.Panics(t, func() {
		RegisterValidator("position", EnumValidator(map[string]bool{"x": true}))
	})
}
