package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dshills/sizewatch/internal/output"
)

// FileName is the config file looked up in the working directory.
const FileName = ".sizewatch.yaml"

// Config represents the sizewatch configuration.
type Config struct {
	MainBranch               string         `mapstructure:"main_branch" json:"main_branch" yaml:"main_branch"`
	WorkflowName             string         `mapstructure:"workflow_name" json:"workflow_name" yaml:"workflow_name"`
	BuildScript              string         `mapstructure:"build_script" json:"build_script" yaml:"build_script"`
	Directory                string         `mapstructure:"directory" json:"directory" yaml:"directory"`
	SkipStep                 string         `mapstructure:"skip_step" json:"skip_step" yaml:"skip_step"`
	WindowsVerbatimArguments bool           `mapstructure:"windows_verbatim_arguments" json:"windows_verbatim_arguments" yaml:"windows_verbatim_arguments"`
	GitHubToken              string         `mapstructure:"github_token" json:"github_token" yaml:"github_token"`
	Threshold                string         `mapstructure:"threshold" json:"threshold" yaml:"threshold"`
	Format                   string         `mapstructure:"format" json:"format" yaml:"format"`
	Out                      string         `mapstructure:"out" json:"out" yaml:"out"`
	DryRun                   bool           `mapstructure:"dry_run" json:"dry_run" yaml:"dry_run"`
	StepSummary              bool           `mapstructure:"step_summary" json:"step_summary" yaml:"step_summary"`
	APIURL                   string         `mapstructure:"api_url" json:"api_url" yaml:"api_url"`
	Repository               string         `mapstructure:"repository" json:"repository" yaml:"repository"`
	Baseline                 BaselineConfig `mapstructure:"baseline" json:"baseline" yaml:"baseline"`
}

// BaselineConfig selects where baselines are stored.
type BaselineConfig struct {
	Backend      string   `mapstructure:"backend" json:"backend" yaml:"backend"`
	ArtifactName string   `mapstructure:"artifact_name" json:"artifact_name" yaml:"artifact_name"`
	Dir          string   `mapstructure:"dir" json:"dir" yaml:"dir"`
	S3           S3Config `mapstructure:"s3" json:"s3" yaml:"s3"`
}

// S3Config holds the s3 backend settings.
type S3Config struct {
	Bucket          string `mapstructure:"bucket" json:"bucket" yaml:"bucket"`
	Prefix          string `mapstructure:"prefix" json:"prefix" yaml:"prefix"`
	Region          string `mapstructure:"region" json:"region" yaml:"region"`
	Endpoint        string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id" json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" json:"secret_access_key" yaml:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style" json:"use_path_style" yaml:"use_path_style"`
}

// Backend names.
const (
	BackendArtifact = "artifact"
	BackendFile     = "file"
	BackendS3       = "s3"
)

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		MainBranch:  "master",
		BuildScript: "build",
		Format:      "text",
		StepSummary: true,
		Baseline: BaselineConfig{
			Backend:      BackendArtifact,
			ArtifactName: "size-limit-action",
		},
	}
}

// keys lists every config key with the extra environment variables read
// for it after SIZEWATCH_<KEY> and INPUT_<KEY>.
var keys = map[string][]string{
	"main_branch":                   {},
	"workflow_name":                 {"GITHUB_WORKFLOW"},
	"build_script":                  {},
	"directory":                     {},
	"skip_step":                     {},
	"windows_verbatim_arguments":    {},
	"github_token":                  {"GITHUB_TOKEN"},
	"threshold":                     {},
	"format":                        {},
	"out":                           {},
	"dry_run":                       {},
	"step_summary":                  {},
	"api_url":                       {"GITHUB_API_URL"},
	"repository":                    {"GITHUB_REPOSITORY"},
	"baseline.backend":              {},
	"baseline.artifact_name":        {},
	"baseline.dir":                  {},
	"baseline.s3.bucket":            {},
	"baseline.s3.prefix":            {},
	"baseline.s3.region":            {"AWS_REGION"},
	"baseline.s3.endpoint":          {},
	"baseline.s3.access_key_id":     {},
	"baseline.s3.secret_access_key": {},
	"baseline.s3.use_path_style":    {},
}

// Keys returns the known config keys, sorted.
func Keys() []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("main_branch", d.MainBranch)
	v.SetDefault("workflow_name", d.WorkflowName)
	v.SetDefault("build_script", d.BuildScript)
	v.SetDefault("directory", d.Directory)
	v.SetDefault("skip_step", d.SkipStep)
	v.SetDefault("windows_verbatim_arguments", d.WindowsVerbatimArguments)
	v.SetDefault("github_token", d.GitHubToken)
	v.SetDefault("threshold", d.Threshold)
	v.SetDefault("format", d.Format)
	v.SetDefault("out", d.Out)
	v.SetDefault("dry_run", d.DryRun)
	v.SetDefault("step_summary", d.StepSummary)
	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("repository", d.Repository)
	v.SetDefault("baseline.backend", d.Baseline.Backend)
	v.SetDefault("baseline.artifact_name", d.Baseline.ArtifactName)
	v.SetDefault("baseline.dir", d.Baseline.Dir)
	v.SetDefault("baseline.s3.bucket", d.Baseline.S3.Bucket)
	v.SetDefault("baseline.s3.prefix", d.Baseline.S3.Prefix)
	v.SetDefault("baseline.s3.region", d.Baseline.S3.Region)
	v.SetDefault("baseline.s3.endpoint", d.Baseline.S3.Endpoint)
	v.SetDefault("baseline.s3.access_key_id", d.Baseline.S3.AccessKeyID)
	v.SetDefault("baseline.s3.secret_access_key", d.Baseline.S3.SecretAccessKey)
	v.SetDefault("baseline.s3.use_path_style", d.Baseline.S3.UsePathStyle)
}

func bindEnv(v *viper.Viper) error {
	for key, extra := range keys {
		names := append([]string{key, "SIZEWATCH_" + envName(key), "INPUT_" + envName(key)}, extra...)
		if err := v.BindEnv(names...); err != nil {
			return fmt.Errorf("binding env for %s: %w", key, err)
		}
	}
	return nil
}

// Path returns the config file to use: path when given, otherwise
// .sizewatch.yaml in the working directory when it exists, otherwise "".
func Path(path string) string {
	if path != "" {
		return path
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	return ""
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only flags the user set should be
// present). An explicit path must exist; the default file is optional.
func Load(path string, overrides map[string]interface{}) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if file := Path(path); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}
	if err := bindEnv(v); err != nil {
		return Config{}, err
	}
	for k, val := range overrides {
		if _, ok := keys[k]; !ok {
			return Config{}, fmt.Errorf("unknown config key: %s", k)
		}
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Validate checks enumerated values and backend requirements.
func (c Config) Validate() error {
	var errs []error
	switch c.SkipStep {
	case "", "install", "build":
	default:
		errs = append(errs, fmt.Errorf("invalid skip_step %q, must be one of: install, build", c.SkipStep))
	}
	switch c.Baseline.Backend {
	case BackendArtifact, BackendFile:
	case BackendS3:
		if c.Baseline.S3.Bucket == "" {
			errs = append(errs, errors.New("baseline.s3.bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid baseline.backend %q, must be one of: artifact, file, s3", c.Baseline.Backend))
	}
	if !validFormat(c.Format) {
		errs = append(errs, fmt.Errorf("invalid format %q, must be one of: %s", c.Format, strings.Join(output.Formats, ", ")))
	}
	if c.MainBranch == "" {
		errs = append(errs, errors.New("main_branch must not be empty"))
	}
	return errors.Join(errs...)
}

func validFormat(f string) bool {
	for _, v := range output.Formats {
		if f == v {
			return true
		}
	}
	return false
}

// Masked returns a copy with secrets replaced for display.
func (c Config) Masked() Config {
	if c.GitHubToken != "" {
		c.GitHubToken = "****"
	}
	if c.Baseline.S3.SecretAccessKey != "" {
		c.Baseline.S3.SecretAccessKey = "****"
	}
	return c
}

// Save writes cfg as YAML to path.
func Save(cfg Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Set updates a single key in the config file at path, creating the file
// from defaults when it does not exist.
func Set(path, key, value string) error {
	if _, ok := keys[key]; !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(Default(), path); err != nil {
			return err
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	v.Set(key, value)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return Save(cfg, path)
}
