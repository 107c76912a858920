package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/classroom/go/internal/runner"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		APIToken       string   `yaml:"api_token"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Session struct {
		DefaultExpectedStudents int `yaml:"default_expected_students"`
		EndGraceSec             int `yaml:"end_grace_sec"`
		MaxDurationSec          int `yaml:"max_duration_sec"`
	} `yaml:"session"`
	Storage struct {
		Driver string `yaml:"driver"` // memory or postgres
	} `yaml:"storage"`
	Events struct {
		NATSURL       string `yaml:"nats_url"`
		Stream        string `yaml:"stream"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"events"`
	// Runner runs student code on this host with no sandbox; keep it off
	// unless the server is isolated.
	Runner struct {
		Enabled        bool   `yaml:"enabled"`
		Interpreter    string `yaml:"interpreter"`
		FileName       string `yaml:"file_name"`
		TimeoutSec     int    `yaml:"timeout_sec"`
		MaxOutputBytes int    `yaml:"max_output_bytes"`
	} `yaml:"runner"`
}

func defaultConfig() *Config {
	var c Config
	c.Server.Port = "8000"
	c.Server.AllowedOrigins = []string{"*"}
	c.Session.EndGraceSec = 5
	c.Session.MaxDurationSec = 7200
	c.Storage.Driver = "memory"
	c.Events.Stream = "CLASSROOM_EVENTS"
	c.Events.SubjectPrefix = "classroom.events"
	c.Runner.Interpreter = "python3"
	c.Runner.FileName = "main.py"
	c.Runner.TimeoutSec = 10
	c.Runner.MaxOutputBytes = 64 << 10
	return &c
}

func (c *Config) EndGrace() time.Duration {
	return time.Duration(c.Session.EndGraceSec) * time.Second
}

// RunnerConfig converts the runner section for runner.New
func (c *Config) RunnerConfig() runner.Config {
	cfg := runner.DefaultConfig()
	cfg.Interpreter = c.Runner.Interpreter
	cfg.FileName = c.Runner.FileName
	cfg.Timeout = time.Duration(c.Runner.TimeoutSec) * time.Second
	cfg.MaxOutputBytes = c.Runner.MaxOutputBytes
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// loadConfig reads the YAML file over the defaults. A missing file leaves
// the defaults in place. Environment variables win over both.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.applyEnv()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.APIToken = getEnv("API_TOKEN", c.Server.APIToken)
	c.Storage.Driver = strings.ToLower(getEnv("STORAGE_DRIVER", c.Storage.Driver))
	c.Events.NATSURL = getEnv("NATS_URL", c.Events.NATSURL)
	c.Session.DefaultExpectedStudents = getEnvAsInt("DEFAULT_EXPECTED_STUDENTS", c.Session.DefaultExpectedStudents)
	c.Runner.Enabled = getEnvAsBool("RUNNER_ENABLED", c.Runner.Enabled)
	c.Runner.Interpreter = getEnv("RUNNER_INTERPRETER", c.Runner.Interpreter)
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Session.EndGraceSec < 0 {
		return fmt.Errorf("session.end_grace_sec cannot be negative")
	}
	if c.Session.DefaultExpectedStudents < 0 {
		return fmt.Errorf("session.default_expected_students cannot be negative")
	}
	if c.Runner.Enabled {
		if c.Runner.Interpreter == "" || c.Runner.FileName == "" {
			return fmt.Errorf("runner.interpreter and runner.file_name are required when the runner is enabled")
		}
		if c.Runner.TimeoutSec <= 0 {
			return fmt.Errorf("runner.timeout_sec must be positive")
		}
	}
	return nil
}
