package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rrgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
driver_path: /opt/rr/driver.so
record_all_content: true
execution_asserts: "app.js@1@40"
build_id: linux-x64-2024.1
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/rr/driver.so", cfg.DriverPath)
	assert.True(t, cfg.RecordAllContent)
	assert.Equal(t, "app.js@1@40", cfg.ExecutionAsserts)
	assert.Equal(t, "linux-x64-2024.1", cfg.BuildID)
	assert.Equal(t, DefaultControlTopic, cfg.ControlTopic)
	assert.Equal(t, os.TempDir(), cfg.TempDir)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "driver_pth: /tmp/x.so\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver_pth")
}

func TestLoad_NeverReadsAuthToken(t *testing.T) {
	path := writeConfig(t, "auth_token: secret\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Default()},
		{name: "wildcard filter", cfg: Config{JSAsserts: "*"}},
		{name: "two triples", cfg: Config{ExecutionAsserts: "a.js@1@2@b.js@3@4"}},
		{name: "partial triple", cfg: Config{ExecutionAsserts: "a.js@1"}, wantErr: "execution_asserts"},
		{name: "bad build id", cfg: Config{BuildID: "has space"}, wantErr: "build_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantErr, verr.Path)
		})
	}
}

func TestApplyEnv_Overrides(t *testing.T) {
	env := MapEnv{
		EnvDriver:                "/env/driver.so",
		EnvRecordAllContent:      "1",
		EnvPretendNotRecording:   "",
		EnvDontProcessRecordings: "yes",
		EnvProfileDirectory:      "/prof",
		EnvJSAsserts:             "*",
	}
	base := Default()
	base.DriverPath = "/file/driver.so"

	cfg, err := ApplyEnv(base, env)
	require.NoError(t, err)
	assert.Equal(t, "/env/driver.so", cfg.DriverPath)
	assert.True(t, cfg.RecordAllContent)
	assert.False(t, cfg.PretendNotRecording, "empty value does not set a flag")
	assert.True(t, cfg.DontProcessRecordings)
	assert.Equal(t, "/prof", cfg.ProfileDirectory)
	assert.Equal(t, "*", cfg.JSAsserts)
	assert.Empty(t, cfg.ExecutionAsserts)
}

func TestApplyEnv_AuthIsReadOnceAndUnset(t *testing.T) {
	env := MapEnv{EnvAuth: "tok", EnvAPIKey: "key"}
	cfg, err := FromEnv(env)
	require.NoError(t, err)
	assert.Equal(t, "tok", cfg.AuthToken)

	_, ok := env.Lookup(EnvAuth)
	assert.False(t, ok)
	_, ok = env.Lookup(EnvAPIKey)
	assert.False(t, ok)

	again, err := FromEnv(env)
	require.NoError(t, err)
	assert.Empty(t, again.AuthToken)
}

func TestApplyEnv_APIKeyFallback(t *testing.T) {
	env := MapEnv{EnvAPIKey: "key"}
	cfg, err := FromEnv(env)
	require.NoError(t, err)
	assert.Equal(t, "key", cfg.AuthToken)
	assert.Empty(t, env)
}

func TestParseDispatch(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		want      Dispatch
		uploading bool
		wantErr   bool
	}{
		{name: "absent", args: []string{"app", "--verbose"}},
		{name: "save to disk", args: []string{"app", DispatchFlag, "*"}, want: Dispatch{Present: true}},
		{
			name:      "upload",
			args:      []string{DispatchFlag, "wss://dispatch.example", "x"},
			want:      Dispatch{Present: true, Address: "wss://dispatch.example"},
			uploading: true,
		},
		{name: "missing value", args: []string{"app", DispatchFlag}, wantErr: true},
		{name: "duplicate", args: []string{DispatchFlag, "*", DispatchFlag, "a"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDispatch(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrBadDispatch))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.uploading, got.Uploading())
		})
	}
}
