package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"pagesheet/common"
	"pagesheet/sheet"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	SheetConfig struct {
		Profile    common.Profile `yaml:"profile" validate:"gte=0,lte=2"`
		LegacyHost bool           `yaml:"legacy_host"`
		// when absent derived from profile
		Fast           *bool `yaml:"fast,omitempty"`
		Capacity       int   `yaml:"capacity" validate:"gte=0"`
		ReportRejected *bool `yaml:"report_rejected,omitempty"`
	}

	OutputConfig struct {
		Index         bool   `yaml:"index"`
		Transliterate bool   `yaml:"transliterate"`
		PageSuffix    string `yaml:"page_suffix" validate:"required"`
	}

	BrowserConfig struct {
		ExecPath  string        `yaml:"exec_path,omitempty" sanitize:"path_clean"`
		RemoteURL string        `yaml:"remote_url,omitempty" validate:"omitempty,url"`
		Headless  bool          `yaml:"headless"`
		Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Sheet     SheetConfig    `yaml:"sheet"`
		Output    OutputConfig   `yaml:"output"`
		Browser   BrowserConfig  `yaml:"browser"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

// Options computes immutable store configuration. Explicit values win over
// profile defaults.
func (conf *SheetConfig) Options() sheet.Options {
	opts := sheet.Options{
		Fast:           conf.Profile.Fast(),
		Capacity:       conf.Capacity,
		ReportRejected: conf.Profile.Diagnostic(),
	}
	if conf.Fast != nil {
		opts.Fast = *conf.Fast
	}
	if conf.ReportRejected != nil {
		opts.ReportRejected = *conf.ReportRejected
	}
	if opts.Capacity == 0 {
		opts.Capacity = sheet.DefaultCapacity
		if conf.LegacyHost {
			opts.Capacity = sheet.DefaultLegacyCapacity
		}
	}
	return opts
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to
// provide sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
