package cliconfig

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

var ErrCredentialNotFound = fmt.Errorf("credential not found")

type Credential struct {
	Token string
}

// Filters narrow what the stepper shows. Patterns are anchored regular
// expressions; empty include patterns match everything.
type Filters struct {
	IncludeProducts string
	ExcludeProducts string
	IncludeServices string
	ExcludeServices string
}

// SSH configures the session-opening shell invocation.
type SSH struct {
	Command string
	Options string
	User    string
}

// Poll bounds the waiting-for-admin loop. Exceeding the budget abandons the
// client side only; the server-side record stays Pending and a later
// invocation with the same requester token can still pick it up.
type Poll struct {
	Attempts int
	Interval time.Duration
}

type CLIConfig struct {
	Credentials map[string]*Credential
	Filters     Filters
	SSH         SSH
	Poll        Poll
}

// Defaults returns a config with the values a fresh install starts from.
func Defaults() *CLIConfig {
	return &CLIConfig{
		Credentials: make(map[string]*Credential),
		Filters: Filters{
			IncludeProducts: ".*",
			IncludeServices: ".*",
		},
		SSH: SSH{
			Command: "ssh",
			Options: "-o StrictHostKeyChecking=no",
			User:    "ssh_bastion",
		},
		Poll: Poll{
			Attempts: 300,
			Interval: time.Second,
		},
	}
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	return filepath.Join(home, ".ssh-ecs", "config.json"), nil
}

func Load() (*CLIConfig, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file '%s': %w", path, err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	cfg := Defaults()
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding config file '%s': %w", path, err)
	}
	if cfg.Credentials == nil {
		cfg.Credentials = make(map[string]*Credential)
	}
	return cfg, nil
}

func Save(cfg *CLIConfig) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory '%s': %w", dir, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file '%s' for writing: %w", path, err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	if err := json.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config to file '%s': %w", path, err)
	}
	return nil
}

func (c *CLIConfig) GetCredential(server string) (*Credential, error) {
	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL '%s': %w", server, err)
	}
	cred, ok := c.Credentials[u.Host]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	return cred, nil
}

func (c *CLIConfig) SetCredential(server, token string) error {
	u, err := url.Parse(server)
	if err != nil {
		return fmt.Errorf("parsing server URL '%s': %w", server, err)
	}
	c.Credentials[u.Host] = &Credential{Token: token}
	return nil
}
