// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNetworkBlocked is returned for non-loopback hosts in offline mode.
	ErrNetworkBlocked = errors.New("network access disabled in offline mode")

	// ErrInvalidURLScheme is returned when the URL scheme is not http or https.
	ErrInvalidURLScheme = errors.New("only http and https schemes are allowed")

	// ErrInvalidURL is returned when the URL cannot be parsed or has no host.
	ErrInvalidURL = errors.New("invalid URL")
)

// =============================================================================
// POLICY
// =============================================================================

// Policy decides whether a tool may contact a URL. The zero value allows any
// http(s) URL.
type Policy struct {
	Enabled bool
}

// IsLocalhost reports whether host refers to a loopback address. A port is
// ignored.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// Check validates rawURL against the policy.
func (p Policy) Check(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: got %q", ErrInvalidURLScheme, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if p.Enabled && !IsLocalhost(u.Host) {
		return fmt.Errorf("%w: %s", ErrNetworkBlocked, u.Hostname())
	}
	return nil
}
