// Package validate provides input validation helpers for remindbot commands.
package validate

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/manav03panchal/remindbot/internal/errors"
)

const (
	// MaxTextLength is the maximum length for a task description or event title.
	MaxTextLength = 1024
	// MaxOwnerLength is the maximum length for an owner identifier.
	MaxOwnerLength = 256
	// MaxURLLength is the maximum length for a URL.
	MaxURLLength = 2048
)

// Owner validates the identifier that scopes every task and event.
func Owner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return errors.NewValidationError("owner",
			"Owner cannot be empty",
			errors.Suggestions[errors.ErrEmptyOwner],
			errors.ErrEmptyOwner)
	}
	if utf8.RuneCountInString(owner) > MaxOwnerLength {
		return errors.NewValidationError("owner",
			"Owner too long",
			fmt.Sprintf("Owners must be %d characters or fewer", MaxOwnerLength),
			errors.ErrTextTooLong)
	}
	return nil
}

// Text validates a description or title. Whitespace-only text counts as empty.
func Text(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewValidationError(field,
			capitalize(field)+" cannot be empty",
			errors.Suggestions[errors.ErrEmptyText],
			errors.ErrEmptyText)
	}
	if utf8.RuneCountInString(value) > MaxTextLength {
		return errors.NewValidationError(field,
			capitalize(field)+" too long",
			fmt.Sprintf("Keep it to %d characters or fewer", MaxTextLength),
			errors.ErrTextTooLong)
	}
	return nil
}

// URL validates a URL for use as a webhook endpoint.
func URL(rawURL string) error {
	if rawURL == "" {
		return errors.NewValidationError("url", "URL cannot be empty", "Provide a valid URL", nil)
	}
	if len(rawURL) > MaxURLLength {
		return errors.NewValidationError("url", "URL too long", "URLs must be 2048 characters or fewer", nil)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.NewValidationErrorWithValue("url", rawURL,
			"Invalid URL format",
			"Provide a valid URL starting with https://", err)
	}

	// Check scheme
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.NewValidationErrorWithValue("url", rawURL,
			"Invalid URL scheme",
			"URLs must use https:// (or http:// for localhost)", nil)
	}

	// Check hostname exists
	hostname := parsed.Hostname()
	if hostname == "" {
		return errors.NewValidationErrorWithValue("url", rawURL,
			"Invalid URL: missing hostname",
			"Provide a valid URL like https://example.com/webhook", nil)
	}

	// Check for localhost (http allowed)
	isLocalhost := hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1"

	// Require HTTPS for non-localhost
	if parsed.Scheme == "http" && !isLocalhost {
		return errors.NewValidationErrorWithValue("url", rawURL,
			"HTTP not allowed for external URLs",
			"Use https://. HTTP is only allowed for localhost.", nil)
	}

	// Check for internal IPs (SSRF protection)
	if !isLocalhost {
		if err := checkInternalIP(hostname); err != nil {
			return err
		}
	}

	return nil
}

// checkInternalIP checks if a hostname resolves to an internal IP.
func checkInternalIP(hostname string) error {
	// First check if it's a direct IP
	if ip := net.ParseIP(hostname); ip != nil {
		if isInternalIP(ip) {
			return errors.NewValidationErrorWithValue("url", hostname,
				"Internal IP addresses not allowed",
				"Webhook URLs must point to external services", nil)
		}
		return nil
	}

	// Try to resolve hostname
	ips, err := net.LookupIP(hostname)
	if err != nil {
		// DNS resolution failed - the webhook will fail later
		return nil
	}

	for _, ip := range ips {
		if isInternalIP(ip) {
			return errors.NewValidationErrorWithValue("url", hostname,
				"Hostname resolves to internal IP",
				"Webhook URLs must point to external services", nil)
		}
	}

	return nil
}

// privateRanges are the networks a webhook may not target.
var privateRanges = mustParseCIDRs(
	"10.0.0.0/8",     // RFC 1918
	"172.16.0.0/12",  // RFC 1918
	"192.168.0.0/16", // RFC 1918
	"127.0.0.0/8",    // Loopback (except explicit localhost check)
	"169.254.0.0/16", // Link-local
	"fc00::/7",       // IPv6 private
	"fe80::/10",      // IPv6 link-local
	"::1/128",        // IPv6 loopback
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		nets = append(nets, network)
	}
	return nets
}

// isInternalIP checks if an IP is in a private/internal range.
func isInternalIP(ip net.IP) bool {
	for _, network := range privateRanges {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// InRange validates that an integer is within a range.
func InRange(field string, value, min, max int) error {
	if value < min || value > max {
		return errors.NewValidationErrorWithValue(field, fmt.Sprint(value),
			"Value out of range",
			fmt.Sprintf("Must be between %d and %d", min, max), nil)
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
