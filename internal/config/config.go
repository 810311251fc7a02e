package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvDriver                = "RECORD_REPLAY_DRIVER"
	EnvAuth                  = "RECORD_REPLAY_AUTH"
	EnvAPIKey                = "RECORD_REPLAY_API_KEY"
	EnvRecordAllContent      = "RECORD_ALL_CONTENT"
	EnvPretendNotRecording   = "RECORD_REPLAY_PRETEND_NOT_RECORDING"
	EnvDontProcessRecordings = "RECORD_REPLAY_DONT_PROCESS_RECORDINGS"
	EnvProfileDirectory      = "RECORD_REPLAY_PROFILE_DIRECTORY"
	EnvExecutionAsserts      = "RECORD_REPLAY_RECORD_EXECUTION_ASSERTS"
	EnvJSAsserts             = "RECORD_REPLAY_RECORD_JS_ASSERTS"
)

// DefaultControlTopic is the topic control notices are published on.
const DefaultControlTopic = "rrgate.control"

// BuildID identifies this build to the driver. Set with -ldflags "-X".
var BuildID = "dev"

//go:embed schema.cue
var schemaCUE string

// Config is the gateway's process configuration.
type Config struct {
	DriverPath            string `yaml:"driver_path" json:"driver_path"`
	RecordAllContent      bool   `yaml:"record_all_content" json:"record_all_content"`
	PretendNotRecording   bool   `yaml:"pretend_not_recording" json:"pretend_not_recording"`
	DontProcessRecordings bool   `yaml:"dont_process_recordings" json:"dont_process_recordings"`
	ProfileDirectory      string `yaml:"profile_directory" json:"profile_directory"`
	ExecutionAsserts      string `yaml:"execution_asserts" json:"execution_asserts"`
	JSAsserts             string `yaml:"js_asserts" json:"js_asserts"`
	TempDir               string `yaml:"temp_dir" json:"temp_dir"`
	BuildID               string `yaml:"build_id" json:"build_id"`
	ControlTopic          string `yaml:"control_topic" json:"control_topic"`

	// AuthToken is handed to the driver once. It is never read from or
	// written to a file.
	AuthToken string `yaml:"-" json:"-"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		TempDir:      os.TempDir(),
		BuildID:      BuildID,
		ControlTopic: DefaultControlTopic,
	}
}

// Load reads a YAML configuration file over the defaults.
// Unknown fields are rejected, and the result is validated against #Config.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var file Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&file); err != nil {
		return cfg, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := Validate(file); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return merge(cfg, file), nil
}

// Validate checks cfg against the CUE definition #Config.
func Validate(cfg Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	value := def.Unify(ctx.Encode(fields(cfg)))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// fields returns the set fields of cfg keyed by their file names.
func fields(cfg Config) map[string]any {
	m := map[string]any{}
	set := func(key, v string) {
		if v != "" {
			m[key] = v
		}
	}
	set("driver_path", cfg.DriverPath)
	set("profile_directory", cfg.ProfileDirectory)
	set("execution_asserts", cfg.ExecutionAsserts)
	set("js_asserts", cfg.JSAsserts)
	set("temp_dir", cfg.TempDir)
	set("build_id", cfg.BuildID)
	set("control_topic", cfg.ControlTopic)
	if cfg.RecordAllContent {
		m["record_all_content"] = true
	}
	if cfg.PretendNotRecording {
		m["pretend_not_recording"] = true
	}
	if cfg.DontProcessRecordings {
		m["dont_process_recordings"] = true
	}
	return m
}

// ValidationError is a schema violation at a field path.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// formatCUEError reports the first CUE error with its field path.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	format, args := first.Msg()
	return &ValidationError{
		Path:    strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
	}
}

// merge overlays the non-zero fields of file onto base.
func merge(base, file Config) Config {
	if file.DriverPath != "" {
		base.DriverPath = file.DriverPath
	}
	base.RecordAllContent = base.RecordAllContent || file.RecordAllContent
	base.PretendNotRecording = base.PretendNotRecording || file.PretendNotRecording
	base.DontProcessRecordings = base.DontProcessRecordings || file.DontProcessRecordings
	if file.ProfileDirectory != "" {
		base.ProfileDirectory = file.ProfileDirectory
	}
	if file.ExecutionAsserts != "" {
		base.ExecutionAsserts = file.ExecutionAsserts
	}
	if file.JSAsserts != "" {
		base.JSAsserts = file.JSAsserts
	}
	if file.TempDir != "" {
		base.TempDir = file.TempDir
	}
	if file.BuildID != "" {
		base.BuildID = file.BuildID
	}
	if file.ControlTopic != "" {
		base.ControlTopic = file.ControlTopic
	}
	return base
}
