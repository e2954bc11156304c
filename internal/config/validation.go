package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate checks the channel list and the distribution root.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateChannels()...)
	results = append(results, c.validateDistRoot()...)
	return results
}

// Errors returns only the error-level findings.
func Errors(results []ValidationResult) []ValidationResult {
	var out []ValidationResult
	for _, r := range results {
		if r.Level == "error" {
			out = append(out, r)
		}
	}
	return out
}

func (c Config) validateChannels() []ValidationResult {
	var results []ValidationResult
	seen := make(map[string]bool, len(c.Channels))
	for _, ch := range c.Channels {
		name := strings.TrimSpace(ch)
		if name == "" {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: "channels contains an empty name",
			})
			continue
		}
		if strings.ContainsAny(name, `/\`) {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("channel %q must not contain path separators", name),
			})
		}
		if seen[name] {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("channel %q listed more than once", name),
			})
		}
		seen[name] = true
	}
	return results
}

func (c Config) validateDistRoot() []ValidationResult {
	root := strings.TrimSpace(c.DistRoot)
	if root == "" {
		return []ValidationResult{{Level: "error", Message: "dist_root is empty"}}
	}

	if u, err := url.Parse(root); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		switch u.Scheme {
		case "http", "https", "file":
			return nil
		default:
			return []ValidationResult{{
				Level:   "error",
				Message: fmt.Sprintf("dist_root scheme %q is not supported", u.Scheme),
			}}
		}
	}

	info, err := os.Stat(root)
	if err != nil {
		return []ValidationResult{{
			Level:   "warning",
			Message: fmt.Sprintf("dist_root directory %q not found", root),
		}}
	}
	if !info.IsDir() {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("dist_root %q is not a directory", root),
		}}
	}
	return nil
}
