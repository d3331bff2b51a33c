// Package config loads the optional configuration file, which holds defaults for the HTTP client, the speed test
// pool and each target.
package config

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"roob.re/mirrorrank/client"
	"roob.re/mirrorrank/pool"
)

type Config struct {
	Client client.Config `yaml:"client"`
	Pool   pool.Config   `yaml:"pool"`

	// Targets contains target-specific config, keyed by target name.
	Targets map[string]yaml.Node `yaml:"targets"`
}

func Parse(r io.Reader) (Config, error) {
	config := Config{}
	err := yaml.NewDecoder(r).Decode(&config)
	if err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	return config, nil
}

// Load reads the config file at path. An empty path returns an empty config.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("opening config: %w", err)
	}

	defer file.Close()

	log.Infof("Loading config from %s", path)
	return Parse(file)
}

// DecodeTarget decodes the section for the given target, if any, into conf.
func (c Config) DecodeTarget(name string, conf interface{}) error {
	node, found := c.Targets[name]
	if !found {
		return nil
	}

	err := node.Decode(conf)
	if err != nil {
		return fmt.Errorf("unmarshalling config for target %q: %w", name, err)
	}

	return nil
}
