package config

import "os"

// Env is the process environment as seen by the gateway.
type Env interface {
	Lookup(key string) (string, bool)
	Unset(key string) error
}

// OSEnv is the real process environment.
type OSEnv struct{}

func (OSEnv) Lookup(key string) (string, bool) { return os.LookupEnv(key) }
func (OSEnv) Unset(key string) error           { return os.Unsetenv(key) }

// MapEnv is an in-memory environment for tests.
type MapEnv map[string]string

func (m MapEnv) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m MapEnv) Unset(key string) error {
	delete(m, key)
	return nil
}

// FromEnv returns the defaults overridden by env. See ApplyEnv.
func FromEnv(env Env) (Config, error) {
	return ApplyEnv(Default(), env)
}

// ApplyEnv overrides cfg with the environment.
//
// The auth token is taken from RECORD_REPLAY_AUTH, falling back to
// RECORD_REPLAY_API_KEY. Once a token is read both variables are removed from
// env, so nothing that inspects the environment later can capture it.
func ApplyEnv(cfg Config, env Env) (Config, error) {
	if v, ok := env.Lookup(EnvDriver); ok && v != "" {
		cfg.DriverPath = v
	}

	token, _ := env.Lookup(EnvAuth)
	if token == "" {
		token, _ = env.Lookup(EnvAPIKey)
	}
	if token != "" {
		cfg.AuthToken = token
		for _, key := range []string{EnvAuth, EnvAPIKey} {
			if err := env.Unset(key); err != nil {
				return cfg, err
			}
		}
	}

	cfg.RecordAllContent = cfg.RecordAllContent || flag(env, EnvRecordAllContent)
	cfg.PretendNotRecording = cfg.PretendNotRecording || flag(env, EnvPretendNotRecording)
	cfg.DontProcessRecordings = cfg.DontProcessRecordings || flag(env, EnvDontProcessRecordings)

	if v, ok := env.Lookup(EnvProfileDirectory); ok && v != "" {
		cfg.ProfileDirectory = v
	}
	if v, ok := env.Lookup(EnvExecutionAsserts); ok && v != "" {
		cfg.ExecutionAsserts = v
	}
	if v, ok := env.Lookup(EnvJSAsserts); ok && v != "" {
		cfg.JSAsserts = v
	}
	return cfg, nil
}

func flag(env Env, key string) bool {
	v, ok := env.Lookup(key)
	return ok && v != ""
}
