package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "GITHUB_TOKEN", "POLAR_TOKEN", "INSIDERS_CONFIG",
		"BACKLOG_NAMESPACES", "BACKLOG_SORT", "BACKLOG_LIMIT", "SPONSORS_MINIMUM_AMOUNT",
		"REFRESH_INTERVAL", "REACTIONS_CACHE_TTL", "CORS_ORIGINS",
	} {
		t.Setenv(key, "")
	}
	// the default file is looked up in the working directory
	// t.Chdir requires Go 1.24; restore the working directory manually
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "insiders.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" || cfg.Env != "development" {
		t.Errorf("Port/Env = %s/%s", cfg.Port, cfg.Env)
	}
	if cfg.RefreshInterval != 15*time.Minute {
		t.Errorf("RefreshInterval = %v", cfg.RefreshInterval)
	}
	if cfg.ReactionsCacheTTL != 30*time.Minute {
		t.Errorf("ReactionsCacheTTL = %v, want twice the refresh interval", cfg.ReactionsCacheTTL)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("ConfigFile = %q, want none", cfg.ConfigFile)
	}
	if cfg.CORSOrigins != nil {
		t.Errorf("CORSOrigins = %v, want none", cfg.CORSOrigins)
	}
	if err := cfg.Require("GITHUB_TOKEN"); err == nil || !strings.Contains(err.Error(), "GITHUB_TOKEN") {
		t.Errorf("Require = %v", err)
	}
	if cfg.IssueLabelNames() != nil {
		t.Error("no issue labels configured must keep every label")
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
backlog:
  namespaces: [pawamoy, mkdocstrings]
  sort:
    - min_author_sponsorships(50)
    - created
  limit: 30
  issue-labels:
    bug: "🐞"
    feature: "✨"
github:
  organization-members:
    acme: [alice, bob]
sponsors:
  minimum-amount: 50
`)
	t.Setenv("INSIDERS_CONFIG", path)
	t.Setenv("BACKLOG_LIMIT", "10")
	t.Setenv("GITHUB_TOKEN", "gh")
	t.Setenv("REFRESH_INTERVAL", "1m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Backlog.Namespaces) != 2 || cfg.Backlog.Namespaces[1] != "mkdocstrings" {
		t.Errorf("Namespaces = %v", cfg.Backlog.Namespaces)
	}
	if len(cfg.Backlog.Sort) != 2 {
		t.Errorf("Sort = %v", cfg.Backlog.Sort)
	}
	if cfg.Backlog.Limit != 10 {
		t.Errorf("Limit = %d, want env override 10", cfg.Backlog.Limit)
	}
	if cfg.Backlog.IssueLabels["bug"] != "🐞" || len(cfg.IssueLabelNames()) != 2 {
		t.Errorf("IssueLabels = %v", cfg.Backlog.IssueLabels)
	}
	if members := cfg.GitHub.OrganizationMembers["acme"]; len(members) != 2 {
		t.Errorf("organization members = %v", members)
	}
	if cfg.Sponsors.MinimumAmount != 50 {
		t.Errorf("MinimumAmount = %d", cfg.Sponsors.MinimumAmount)
	}
	if cfg.RefreshInterval != time.Minute {
		t.Errorf("RefreshInterval = %v", cfg.RefreshInterval)
	}
	if err := cfg.Require("GITHUB_TOKEN"); err != nil {
		t.Errorf("Require failed: %v", err)
	}
}

func TestLoad_EnvLists(t *testing.T) {
	clearEnv(t)
	t.Setenv("BACKLOG_NAMESPACES", "pawamoy, mkdocstrings")
	t.Setenv("BACKLOG_SORT", "min_pledge(50), created")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Backlog.Namespaces) != 2 || cfg.Backlog.Namespaces[0] != "pawamoy" {
		t.Errorf("Namespaces = %v", cfg.Backlog.Namespaces)
	}
	if len(cfg.Backlog.Sort) != 1 || cfg.Backlog.Sort[0] != "min_pledge(50), created" {
		t.Errorf("Sort = %v", cfg.Backlog.Sort)
	}
}

func TestLoad_TokenCommand(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "github:\n  token-command: echo from-command\n")
	t.Setenv("INSIDERS_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.GitHubToken != "from-command" {
		t.Errorf("GitHubToken = %q", cfg.GitHubToken)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	t.Setenv("INSIDERS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("explicit missing config file must fail")
	}

	t.Setenv("INSIDERS_CONFIG", writeConfig(t, "backlog: [not, a, mapping"))
	if _, err := Load(); err == nil {
		t.Error("invalid YAML must fail")
	}
}

func TestLoad_ReactionsCacheTTLFollowsInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("REFRESH_INTERVAL", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ReactionsCacheTTL != 2*time.Hour {
		t.Errorf("ReactionsCacheTTL = %v, want 2h", cfg.ReactionsCacheTTL)
	}

	t.Setenv("REACTIONS_CACHE_TTL", "90m")
	if cfg, err = Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ReactionsCacheTTL != 90*time.Minute {
		t.Errorf("explicit ReactionsCacheTTL = %v, want 90m", cfg.ReactionsCacheTTL)
	}
}

func TestRequire_Namespaces(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Require("BACKLOG_NAMESPACES"); err == nil || !strings.Contains(err.Error(), "BACKLOG_NAMESPACES") {
		t.Errorf("Require without namespaces = %v", err)
	}

	t.Setenv("BACKLOG_NAMESPACES", "pawamoy")
	if cfg, err = Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Require("BACKLOG_NAMESPACES"); err != nil {
		t.Errorf("Require with namespaces = %v", err)
	}
}
