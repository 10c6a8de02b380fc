package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes all environment variables that override
	// configuration values
	EnvPrefix = "PGCORE_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load loads the configuration from the YAML file at path, then
// overrides it with environment variables. Values set by neither keep
// their defaults. If path is empty, only environment variables are
// read.
//
// Environment variables are uppercased, prefixed with PGCORE_, and
// separate the section from the field name with an underscore. Nested
// fields are separated by a double underscore:
//
//	PGCORE_AGENT_GAMMA                 -> agent.gamma
//	PGCORE_AGENT_GAE_LAMBDA            -> agent.gae_lambda
//	PGCORE_POLICY_SOLVER__STEP_SIZE    -> policy.solver.step_size
func Load(path string) (*Config, error) {
	var content []byte
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("load: config file %s is too large "+
				"(%d bytes)", path, info.Size())
		}

		if content, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
	}
	return LoadBytes(content)
}

// LoadBytes loads the configuration from YAML content, then overrides
// it with environment variables. See Load.
func LoadBytes(content []byte) (*Config, error) {
	k := koanf.New(".")

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load: could not parse config: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load: could not load environment "+
			"variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("load: could not unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load: invalid config: %w", err)
	}
	return &cfg, nil
}

// envKey maps an environment variable to its configuration key
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.Split(lower, "__")

	// The section is separated from the first field by an underscore
	section := strings.SplitN(parts[0], "_", 2)
	parts = append(section, parts[1:]...)

	return strings.Join(parts, ".")
}
