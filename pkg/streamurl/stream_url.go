// Package streamurl parses and validates media endpoint URLs.
//
// This layer is pure validation: no network I/O, no DNS resolution. It
// normalizes URL handling for the three places a URL may enter the system
// (input sources, output destinations, mixin sources), each with its own
// scheme whitelist.
package streamurl

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// URL is a parsed and validated media endpoint address.
type URL struct {
	Scheme string `json:"scheme"`
	Host   string `json:"host"`
	Port   string `json:"port"`
	Path   string `json:"path"`

	raw string
}

// String returns the original raw form the URL was parsed from.
func (u *URL) String() string { return u.raw }

// Scheme whitelists per role. RTMP-family and SRT carry live ingest;
// HTTP(S) covers MPEG-TS and audio pull sources.
var (
	inputSchemes  = map[string]bool{"rtmp": true, "rtmps": true}
	outputSchemes = map[string]bool{"rtmp": true, "rtmps": true, "srt": true, "icecast": true}
	mixinSchemes  = map[string]bool{"ts": true, "http": true, "https": true}
)

// Parse splits a URL string into components and validates host and port.
func Parse(raw string) (*URL, error) {
	if strings.TrimSpace(raw) != raw || raw == "" {
		return nil, errors.New("empty or padded URL")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("unable to parse URL: %w", err)
	}
	if u.Scheme == "" {
		return nil, errors.New("missing URL scheme")
	}
	if u.User != nil {
		return nil, errors.New("userinfo should not be embedded in the URL")
	}

	host := u.Hostname()
	if host == "" {
		return nil, errors.New("missing host")
	}
	if err := validateHost(host); err != nil {
		return nil, err
	}

	port := u.Port()
	if port != "" && !isPort(port) {
		return nil, fmt.Errorf("bad port: '%s'", port)
	}

	return &URL{
		Scheme: strings.ToLower(u.Scheme),
		Host:   host,
		Port:   port,
		Path:   u.Path,
		raw:    raw,
	}, nil
}

// ValidateInput accepts URLs usable as a pull-input source.
func ValidateInput(raw string) error {
	u, err := Parse(raw)
	if err != nil {
		return err
	}
	if !inputSchemes[u.Scheme] {
		return fmt.Errorf("unsupported input scheme: '%s'", u.Scheme)
	}
	return nil
}

// ValidateOutput accepts URLs usable as a forwarding destination.
func ValidateOutput(raw string) error {
	u, err := Parse(raw)
	if err != nil {
		return err
	}
	if !outputSchemes[u.Scheme] {
		return fmt.Errorf("unsupported output scheme: '%s'", u.Scheme)
	}
	return nil
}

// ValidateMixin accepts URLs usable as an auxiliary audio source.
func ValidateMixin(raw string) error {
	u, err := Parse(raw)
	if err != nil {
		return err
	}
	if !mixinSchemes[u.Scheme] {
		return fmt.Errorf("unsupported mixin scheme: '%s'", u.Scheme)
	}
	return nil
}

func isPort(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 1 && n <= 65535
}
