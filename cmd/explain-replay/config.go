package main

import (
	"flag"

	"github.com/arloliu/fuda"
)

// Config holds all CLI configuration.
// Uses fuda struct tags for defaults and env var binding.
type Config struct {
	// Connection settings
	Endpoint    string `yaml:"endpoint" default:"localhost:4317" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	UseHTTP     bool   `yaml:"http" default:"false"`
	Insecure    *bool  `yaml:"insecure" default:"true" env:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName string `yaml:"serviceName" env:"OTEL_SERVICE_NAME"`
	Console     bool   `yaml:"console" default:"false"`

	// Input settings
	File   string `yaml:"file"`
	Format string `yaml:"format" default:"jsonlog"`
}

func newConfig() *Config {
	cfg := &Config{}
	// Apply defaults from struct tags (fuda handles *bool parsing)
	_ = fuda.SetDefaults(cfg)

	return cfg
}

func (c *Config) bindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Endpoint, "endpoint", c.Endpoint, "OTLP endpoint")
	fs.BoolVar(&c.UseHTTP, "http", c.UseHTTP, "Use HTTP instead of gRPC")
	fs.Func("insecure", "Skip TLS verification (default: true)", func(s string) error {
		val := s == "true" || s == "1"
		c.Insecure = &val

		return nil
	})
	fs.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Override service name")
	fs.BoolVar(&c.Console, "console", c.Console, "Print spans to stdout instead of exporting via OTLP")
	fs.StringVar(&c.File, "file", c.File, "Log file to read (default: stdin)")
	fs.StringVar(&c.Format, "format", c.Format, "Input format: jsonlog or raw")
}

func (c *Config) applyEnvOverrides() {
	// fuda.LoadEnv reads env vars based on struct tags
	_ = fuda.LoadEnv(c)
}
