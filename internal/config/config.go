// Package config loads the optional httpspecctl.yaml run configuration.
// Command line flags override every field.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when --config is not given.
const DefaultFile = "httpspecctl.yaml"

type Config struct {
	Spec      string            `yaml:"spec"`
	Protocol  string            `yaml:"protocol"`
	FailFast  bool              `yaml:"fail_fast"`
	Timeout   time.Duration     `yaml:"timeout"`
	Run       []string          `yaml:"run"`
	Skip      []string          `yaml:"skip"`
	AllureDir string            `yaml:"allure_dir"`
	XLSX      string            `yaml:"xlsx"`
	Labels    map[string]string `yaml:"labels"`
}

func Default() *Config {
	return &Config{
		Protocol: "http1",
		Labels:   make(map[string]string),
	}
}

// Load reads the config at pth. A missing file yields the defaults.
func Load(pth string) (*Config, error) {
	data, err := os.ReadFile(pth)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("reading config %s: %w", pth, err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Protocol == "" {
		cfg.Protocol = "http1"
	}

	if cfg.Labels == nil {
		cfg.Labels = make(map[string]string)
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("parsing config: negative timeout %s", cfg.Timeout)
	}

	return cfg, nil
}

// LabelPairs returns labels as sorted key:value pairs.
func (c *Config) LabelPairs() []string {
	pairs := make([]string, 0, len(c.Labels))
	for k, v := range c.Labels {
		pairs = append(pairs, k+":"+v)
	}

	sort.Strings(pairs)

	return pairs
}
