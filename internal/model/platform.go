package model

import (
	"fmt"
	"strings"
)

// Platform identifies a sponsorship or issue platform
type Platform string

// Supported platforms
const (
	PlatformGitHub Platform = "github"
	PlatformPolar  Platform = "polar"
	PlatformKofi   Platform = "kofi"
)

var profileURLTemplates = map[Platform]string{
	PlatformGitHub: "https://github.com/%s",
	PlatformPolar:  "https://polar.sh/%s",
}

var imageURLTemplates = map[Platform]string{
	PlatformGitHub: "https://avatars.githubusercontent.com/%s",
}

// Valid reports whether p is one of the supported platforms
func (p Platform) Valid() bool {
	switch p {
	case PlatformGitHub, PlatformPolar, PlatformKofi:
		return true
	}
	return false
}

// IsIssuePlatform reports whether issues can be fetched from p
func (p Platform) IsIssuePlatform() bool {
	return p == PlatformGitHub || p == PlatformPolar
}

// ParsePlatform converts a case-insensitive name into a Platform
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform: %q", s)
	}
	return p, nil
}

func formatTemplate(templates map[Platform]string, p Platform, name string) string {
	tmpl, ok := templates[p]
	if !ok {
		return ""
	}
	return fmt.Sprintf(tmpl, name)
}
