package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/sidkik/studymirror/pkg/errors"
)

const (
	// DefaultPath is the default location of the config file.
	DefaultPath = "~/.studymirror.yaml"

	// SupportedVersion is the config file version understood by this
	// binary. Files that don't specify a version default to it.
	SupportedVersion = "v1alpha1"

	// DefaultOutput is where studies are mirrored if no output directory is
	// configured.
	DefaultOutput = "data"

	// DefaultBackoff is the default pause after a study fails.
	DefaultBackoff = "10s"

	// DefaultTimeout is the default timeout for a single catalog request.
	DefaultTimeout = "5m"

	// PasswordEnvKey is the environment variable that overrides the
	// configured password, so that it doesn't need to be stored on disk.
	PasswordEnvKey = "STUDYMIRROR_PASSWORD"
)

// parseConfigErrTemplate is a template for when the config file can't be
// parsed. The yaml library loses context when constructing errors, so we can
// only pass the error message on.
const parseConfigErrTemplate = "Configuration file could not be parsed. " +
	"Please review %q.\n" +
	"Common pitfalls include:\n" +
	" - Using the wrong types for fields\n" +
	" - Having extra fields inside the config file\n\n" +
	"For reference, here is the error from the parser:\n" +
	"%s"

// Config contains everything needed for a sync run.
type Config struct {
	Version string `json:"version,omitempty"`

	// Server is the URI of the remote catalog. It's required.
	Server string `json:"server,omitempty"`

	// Username and Password are optional. The session is anonymous if
	// they're not set.
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// Output is the directory that the studies are mirrored into.
	Output string `json:"output,omitempty"`

	// Study restricts the run to a single study, which is always
	// downloaded.
	Study string `json:"study,omitempty"`

	// Backoff and Timeout are durations such as "10s".
	Backoff string `json:"backoff,omitempty"`
	Timeout string `json:"timeout,omitempty"`
}

type incompatibleVersionError struct {
	path, exp, actual string
}

func (err incompatibleVersionError) Error() string {
	return err.FriendlyMessage()
}

func (err incompatibleVersionError) FriendlyMessage() string {
	return fmt.Sprintf("The configuration file %q is incompatible "+
		"with this version of studymirror.\n"+
		"Expected version %q, but got %q.", err.path, err.exp, err.actual)
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// Default returns the config used when nothing is configured.
func Default() Config {
	return Config{
		Version: SupportedVersion,
		Output:  DefaultOutput,
		Backoff: DefaultBackoff,
		Timeout: DefaultTimeout,
	}
}

// Load reads the config file at `path`, and applies it over the defaults. A
// missing file is only an error if it's not at the default path.
func Load(path string) (Config, error) {
	cfg := Default()

	expanded, err := homedirExpand(path)
	if err != nil {
		return Config{}, errors.WithContext(err, "expand config path")
	}

	fileCfg, err := Parse(expanded)
	if err != nil {
		if _, ok := err.(errors.FileNotFound); ok && path == DefaultPath {
			return cfg, nil
		}
		return Config{}, errors.WithContext(err, "parse")
	}

	cfg.Merge(fileCfg)
	return cfg, nil
}

// Parse reads the config file at `path`. Unknown fields are an error.
func Parse(path string) (Config, error) {
	configBytes, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.FileNotFound{Path: path}
		}
		return Config{}, errors.WithContext(err, "read file")
	}

	cfg := Config{Version: SupportedVersion}
	if err := yaml.Unmarshal(configBytes, &cfg); err != nil {
		return Config{}, errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}

	if cfg.Version != SupportedVersion {
		return Config{}, incompatibleVersionError{path, SupportedVersion, cfg.Version}
	}

	// Do a strict unmarshal to check for any extra fields. We do a non-strict
	// unmarshal first so that we can catch version errors before erroring on
	// extra fields.
	err = yaml.UnmarshalStrict(configBytes, &cfg, yaml.DisallowUnknownFields)
	if err != nil {
		return Config{}, errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}
	return cfg, nil
}

// Write saves `cfg` to `path`.
func Write(path string, cfg Config) error {
	cfg.Version = SupportedVersion

	expanded, err := homedirExpand(path)
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	// The file may contain a password.
	if err := afero.WriteFile(fs, expanded, yamlBytes, 0600); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// Merge overwrites the fields in `cfg` with the non-empty fields in
// `overrides`.
func (cfg *Config) Merge(overrides Config) {
	for _, field := range []struct {
		dst *string
		src string
	}{
		{&cfg.Server, overrides.Server},
		{&cfg.Username, overrides.Username},
		{&cfg.Password, overrides.Password},
		{&cfg.Output, overrides.Output},
		{&cfg.Study, overrides.Study},
		{&cfg.Backoff, overrides.Backoff},
		{&cfg.Timeout, overrides.Timeout},
	} {
		if field.src != "" {
			*field.dst = field.src
		}
	}
}

// ApplyEnv overrides the password with the environment, if it's set.
func (cfg *Config) ApplyEnv(getenv func(string) string) {
	if password := getenv(PasswordEnvKey); password != "" {
		cfg.Password = password
	}
}

// Validate checks that the config can be used for a run.
func (cfg Config) Validate() error {
	if cfg.Server == "" {
		return errors.ConfigurationError{Field: "server", Reason: "the catalog URI is required"}
	}

	if cfg.Password != "" && cfg.Username == "" {
		return errors.ConfigurationError{Field: "username",
			Reason: "a password was given without a username"}
	}

	if _, err := cfg.BackoffDuration(); err != nil {
		return err
	}
	if _, err := cfg.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// OutputDir returns the output directory, with `~` expanded.
func (cfg Config) OutputDir() (string, error) {
	output := cfg.Output
	if output == "" {
		output = DefaultOutput
	}
	return homedirExpand(output)
}

// BackoffDuration parses Backoff.
func (cfg Config) BackoffDuration() (time.Duration, error) {
	return parseDuration("backoff", cfg.Backoff, DefaultBackoff)
}

// TimeoutDuration parses Timeout.
func (cfg Config) TimeoutDuration() (time.Duration, error) {
	return parseDuration("timeout", cfg.Timeout, DefaultTimeout)
}

func parseDuration(field, value, def string) (time.Duration, error) {
	if value == "" {
		value = def
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.ConfigurationError{Field: field,
			Reason: fmt.Sprintf("%q is not a duration", value)}
	}
	if d <= 0 {
		return 0, errors.ConfigurationError{Field: field,
			Reason: fmt.Sprintf("%q must be positive", value)}
	}
	return d, nil
}
