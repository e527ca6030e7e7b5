// Package config loads the rule context settings from YAML, with environment
// overrides for the connection settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/matst80/slask-rulecontext/pkg/rulecontext"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type TrackedFilter struct {
	Facet string   `yaml:"facet"`
	Allow []string `yaml:"allow,omitempty"`
	Deny  []string `yaml:"deny,omitempty"`
}

type Transform struct {
	StripPrefix string `yaml:"stripPrefix,omitempty"`
	Lowercase   bool   `yaml:"lowercase,omitempty"`
}

type Redis struct {
	Url      string `yaml:"url,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

type Rabbit struct {
	Url     string `yaml:"url,omitempty"`
	Country string `yaml:"country,omitempty"`
}

type Cache struct {
	TTL time.Duration `yaml:"ttl,omitempty"`
}

type Config struct {
	Endpoint       string          `yaml:"endpoint"`
	TrackedFilters []TrackedFilter `yaml:"trackedFilters"`
	Transform      Transform       `yaml:"transform,omitempty"`
	Redis          Redis           `yaml:"redis,omitempty"`
	Rabbit         Rabbit          `yaml:"rabbit,omitempty"`
	Cache          Cache           `yaml:"cache,omitempty"`
	LogLevel       string          `yaml:"logLevel,omitempty"`
	MaxRounds      int             `yaml:"maxRounds,omitempty"`
}

var ErrInvalid = errors.New("config: invalid")

func Default() *Config {
	return &Config{
		Endpoint:  "http://localhost:8080/api/search",
		Cache:     Cache{TTL: time.Minute},
		LogLevel:  "info",
		MaxRounds: 5,
		Rabbit:    Rabbit{Country: "se"},
	}
}

// Load reads path (when not empty) over the defaults and applies env overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	apply := func(curr *string, env string) {
		if v := os.Getenv(env); v != "" {
			*curr = v
		}
	}
	apply(&c.Endpoint, "SEARCH_ENDPOINT")
	apply(&c.Redis.Url, "REDIS_URL")
	apply(&c.Redis.Password, "REDIS_PASSWORD")
	apply(&c.Rabbit.Url, "RABBIT_URL")
	apply(&c.Rabbit.Country, "COUNTRY")
	apply(&c.LogLevel, "LOG_LEVEL")
}

func (c *Config) Validate() error {
	seen := map[string]struct{}{}
	for i, f := range c.TrackedFilters {
		if f.Facet == "" {
			return fmt.Errorf("%w: trackedFilters[%d] has no facet", ErrInvalid, i)
		}
		if len(f.Allow) > 0 && len(f.Deny) > 0 {
			return fmt.Errorf("%w: tracked filter %q has both allow and deny", ErrInvalid, f.Facet)
		}
		if _, ok := seen[f.Facet]; ok {
			return fmt.Errorf("%w: tracked filter %q is listed twice", ErrInvalid, f.Facet)
		}
		seen[f.Facet] = struct{}{}
	}
	if c.MaxRounds < 0 {
		return fmt.Errorf("%w: maxRounds must not be negative", ErrInvalid)
	}
	return nil
}

func (f TrackedFilter) selector() rulecontext.Selector {
	switch {
	case len(f.Allow) > 0:
		return rulecontext.AllowOnly(f.Allow...)
	case len(f.Deny) > 0:
		return rulecontext.Deny(f.Deny...)
	default:
		return rulecontext.All()
	}
}

func (c *Config) transform() func([]string) []string {
	var transforms []func([]string) []string
	if c.Transform.StripPrefix != "" {
		transforms = append(transforms, rulecontext.StripPrefix(c.Transform.StripPrefix))
	}
	if c.Transform.Lowercase {
		transforms = append(transforms, rulecontext.Lowercase())
	}
	if len(transforms) == 0 {
		return nil
	}
	return rulecontext.Chain(transforms...)
}

// RuleContextConfig builds the reconciler configuration for the tracked filters.
func (c *Config) RuleContextConfig(render rulecontext.RenderFunc, logger *zap.Logger) rulecontext.Config {
	filters := make([]rulecontext.TrackedFilter, 0, len(c.TrackedFilters))
	for _, f := range c.TrackedFilters {
		filters = append(filters, rulecontext.TrackedFilter{
			Facet:    f.Facet,
			Selector: f.selector(),
		})
	}
	return rulecontext.Config{
		TrackedFilters:        filters,
		TransformRuleContexts: c.transform(),
		Render:                render,
		Logger:                logger,
	}
}
