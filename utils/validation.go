package utils

import (
	"net/url"
	"regexp"
	"strings"
)

// Discord snowflakes are 17-19 digit numeric strings.
var discordIDPattern = regexp.MustCompile(`^\d{17,19}$`)

// IsValidDiscordID reports whether id looks like a Discord user snowflake.
func IsValidDiscordID(id string) bool {
	return discordIDPattern.MatchString(id)
}

// SanitizeExternalURL returns the URL unchanged when it is an http(s) URL
// or an inline image data URI, and "" otherwise. Used before echoing
// upstream-supplied art URLs back to clients.
func SanitizeExternalURL(raw string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "data:image/") {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return raw
}
