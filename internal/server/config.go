package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the optional HCL server configuration file:
//
//	server {
//	  address   = ":33030"
//	  log_level = "debug"
//	  seed      = 42
//	}
type Config struct {
	Server Settings `hcl:"server,block"`
}

// Settings holds server-level options. Seed pins every random draw (user
// ids, room ids, deals) for reproducible runs; leave it unset in production.
type Settings struct {
	Address  string `hcl:"address,optional"`
	LogLevel string `hcl:"log_level,optional"`
	Seed     *int64 `hcl:"seed,optional"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: Settings{
			Address:  ":33030",
			LogLevel: "info",
		},
	}
}

// LoadConfig reads an HCL config file, falling back to defaults when the
// file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse config: %s", diags.Error())
	}

	var config Config
	if diags := gohcl.DecodeBody(file.Body, nil, &config); diags.HasErrors() {
		return nil, fmt.Errorf("decode config: %s", diags.Error())
	}

	if config.Server.Address == "" {
		config.Server.Address = ":33030"
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	return &config, nil
}

// Validate checks the decoded configuration.
func (c *Config) Validate() error {
	switch c.Server.LogLevel {
	case "trace", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log_level %q", c.Server.LogLevel)
	}
}
