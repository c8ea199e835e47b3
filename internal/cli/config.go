package cli

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// DefaultServer is used when neither --server nor CLASSCAST_SERVER is set.
const DefaultServer = "http://localhost:3000"

// Config holds application configuration
type Config struct {
	// Server is the base HTTP URL of the classcast server.
	Server string

	// WebSocketURL is constructed from Server.
	WebSocketURL string
}

// Options for loading config with CLI flag overrides
type Options struct {
	Server string
}

// LoadConfig reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func LoadConfig(opts Options) (*Config, error) {
	server := opts.Server
	if server == "" {
		server = os.Getenv("CLASSCAST_SERVER")
	}
	if server == "" {
		server = DefaultServer
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}

	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", server, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", server)
	}

	ws := *u
	switch u.Scheme {
	case "http":
		ws.Scheme = "ws"
	case "https":
		ws.Scheme = "wss"
	default:
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", server)
	}
	ws.Path = strings.TrimRight(u.Path, "/") + "/ws"
	ws.RawQuery = "client=cli"

	u.Path = strings.TrimRight(u.Path, "/")
	return &Config{
		Server:       u.String(),
		WebSocketURL: ws.String(),
	}, nil
}

// parseConferenceInput accepts a bare conference id or a conference page
// link such as http://host/conference/<id>?studentName=Bo.
func parseConferenceInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("conference id is required")
	}
	if !strings.Contains(input, "://") {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid conference link: %w", err)
	}
	_, id, ok := strings.Cut(strings.Trim(u.Path, "/"), "conference/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("invalid conference link %q", input)
	}
	return id, nil
}
