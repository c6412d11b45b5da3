// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// extractPath is appended to EXTRACTOR_URL by the extraction client.
const extractPath = "/extract"

// validateExtractorURL checks EXTRACTOR_URL. A path prefix is allowed for services
// behind a gateway, but the URL must not already name the extract endpoint.
func validateExtractorURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required (e.g., http://extractor:9090)")
	}
	if strings.HasSuffix(strings.TrimSuffix(u.Path, "/"), extractPath) {
		return fmt.Errorf("remove %s from the path, it is added per request", extractPath)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("query and fragment are not allowed")
	}
	return nil
}

// validNATSSchemes are the schemes nats.go dials.
var validNATSSchemes = map[string]bool{"nats": true, "tls": true, "ws": true, "wss": true}

// validateNATSURL checks NATS_URL, which may list several servers separated by
// commas as nats.Connect accepts.
func validateNATSURL(rawURL string) error {
	servers := strings.Split(rawURL, ",")
	for i, server := range servers {
		server = strings.TrimSpace(server)
		u, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("server %d: failed to parse URL: %w", i+1, err)
		}
		if !validNATSSchemes[u.Scheme] {
			return fmt.Errorf("server %d: scheme must be nats, tls, ws, or wss, got: %q", i+1, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("server %d: host is required (e.g., nats://localhost:4222)", i+1)
		}
	}
	return nil
}
