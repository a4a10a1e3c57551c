package application

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads, expands, and validates a suite configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML configuration. Unknown fields are rejected so
// typos surface immediately instead of silently dropping settings.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	expandServerEnv(&config.Server)
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// expandServerEnv substitutes ${VAR} references in server connection
// fields. Only values that are exactly one reference are expanded, and
// only within the server block; prompts and model settings pass through
// untouched so evaluation content stays literal.
func expandServerEnv(server *ServerConfig) {
	server.URL = expandExactVar(server.URL)
	for k, v := range server.Env {
		server.Env[k] = expandExactVar(v)
	}
	for k, v := range server.Headers {
		server.Headers[k] = expandExactVar(v)
	}
}

func expandExactVar(value string) string {
	if !strings.HasPrefix(value, "${") || !strings.HasSuffix(value, "}") {
		return value
	}
	name := value[2 : len(value)-1]
	if name == "" || strings.ContainsAny(name, "${}") {
		return value
	}
	if expanded, ok := os.LookupEnv(name); ok {
		return expanded
	}
	return value
}
