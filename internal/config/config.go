package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "insiders.yaml"

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	GitHubToken string
	PolarToken  string
	ConfigFile  string
	CORSOrigins []string

	Backlog  BacklogConfig
	GitHub   GitHubConfig
	Sponsors SponsorsConfig

	// Background refresh
	RefreshInterval   time.Duration
	ReactionsCacheTTL time.Duration
}

// BacklogConfig drives issue fetching, ranking and display
type BacklogConfig struct {
	Namespaces  []string          `yaml:"namespaces"`
	Sort        []string          `yaml:"sort"`
	Limit       int               `yaml:"limit"`
	IssueLabels map[string]string `yaml:"issue-labels"` // label → glyph
}

// GitHubConfig holds GitHub specific settings
type GitHubConfig struct {
	TokenCommand        string              `yaml:"token-command"`
	OrganizationMembers map[string][]string `yaml:"organization-members"`
}

// SponsorsConfig holds sponsorship settings
type SponsorsConfig struct {
	MinimumAmount int `yaml:"minimum-amount"`
}

type polarFile struct {
	TokenCommand string `yaml:"token-command"`
}

type fileConfig struct {
	Backlog  BacklogConfig  `yaml:"backlog"`
	GitHub   GitHubConfig   `yaml:"github"`
	Polar    polarFile      `yaml:"polar"`
	Sponsors SponsorsConfig `yaml:"sponsors"`
}

// Load reads the optional YAML file, then environment variables, which
// take precedence. Required values are checked by Require so commands
// that need no token can still load configuration.
func Load() (*Config, error) {
	path := getEnv("INSIDERS_CONFIG", "")
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	file, err := readFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			file = &fileConfig{}
			path = ""
		} else {
			return nil, err
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		GitHubToken: os.Getenv("GITHUB_TOKEN"),
		PolarToken:  os.Getenv("POLAR_TOKEN"),
		ConfigFile:  path,
		CORSOrigins: getList("CORS_ORIGINS"),

		Backlog:  file.Backlog,
		GitHub:   file.GitHub,
		Sponsors: file.Sponsors,

		RefreshInterval: getDuration("REFRESH_INTERVAL", 15*time.Minute),
	}
	// entries must outlive one refresh interval to be reused by the next
	cfg.ReactionsCacheTTL = getDuration("REACTIONS_CACHE_TTL", 2*cfg.RefreshInterval)

	if ns := getList("BACKLOG_NAMESPACES"); ns != nil {
		cfg.Backlog.Namespaces = ns
	}
	if sort := os.Getenv("BACKLOG_SORT"); sort != "" {
		// strategy expressions contain commas, keep the value whole
		cfg.Backlog.Sort = []string{sort}
	}
	cfg.Backlog.Limit = getInt("BACKLOG_LIMIT", cfg.Backlog.Limit)
	cfg.Sponsors.MinimumAmount = getInt("SPONSORS_MINIMUM_AMOUNT", cfg.Sponsors.MinimumAmount)

	if cfg.GitHubToken == "" && file.GitHub.TokenCommand != "" {
		if cfg.GitHubToken, err = runTokenCommand(file.GitHub.TokenCommand); err != nil {
			return nil, fmt.Errorf("failed to get GitHub token: %w", err)
		}
	}
	if cfg.PolarToken == "" && file.Polar.TokenCommand != "" {
		if cfg.PolarToken, err = runTokenCommand(file.Polar.TokenCommand); err != nil {
			return nil, fmt.Errorf("failed to get Polar token: %w", err)
		}
	}

	return cfg, nil
}

// Require returns an error naming the first missing variable among keys
func (c *Config) Require(keys ...string) error {
	values := map[string]string{
		"GITHUB_TOKEN": c.GitHubToken,
		"POLAR_TOKEN":  c.PolarToken,
		"DATABASE_URL": c.DatabaseURL,
		// set through the env or backlog.namespaces in the file
		"BACKLOG_NAMESPACES": strings.Join(c.Backlog.Namespaces, ","),
	}
	for _, key := range keys {
		if values[key] == "" {
			return fmt.Errorf("%s is required", key)
		}
	}
	return nil
}

// IssueLabelNames lists the labels to keep on issues, nil when every label is kept
func (c *Config) IssueLabelNames() []string {
	if len(c.Backlog.IssueLabels) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.Backlog.IssueLabels))
	for name := range c.Backlog.IssueLabels {
		names = append(names, name)
	}
	return names
}

func readFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &file, nil
}

func runTokenCommand(command string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "sh", "-c", command).Output()
	if err != nil {
		return "", fmt.Errorf("token command failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getList splits a comma or space separated variable
func getList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' '
	})
}
