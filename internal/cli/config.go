package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Token     string
	TokenFile string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("SHELLGAME_SERVER", "http://localhost:8080"),
		Token:     os.Getenv("SHELLGAME_TOKEN"),
		TokenFile: getEnvOrDefault("SHELLGAME_TOKEN_FILE", defaultTokenFile()),
		Output:    "text",
		Verbose:   false,
	}
}

// LoadToken loads the token from file if not already set
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}

	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil // No token file is fine
		}
		return err
	}

	c.Token = strings.TrimSpace(string(data))
	return nil
}

// SaveToken saves the token to the token file
func (c *Config) SaveToken(token string) error {
	c.Token = token

	dir := filepath.Dir(c.TokenFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.TokenFile, []byte(token), 0600)
}

// TokenUsername returns the subject of the saved token, or "" if there is none.
// The signature is not checked here; the server does that on every request.
func (c *Config) TokenUsername() string {
	if c.Token == "" {
		return ""
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Token, &claims); err != nil {
		return ""
	}
	return claims.Subject
}

// ResolveUsername picks the acting username: an explicit argument wins,
// otherwise the logged-in user.
func (c *Config) ResolveUsername(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if u := c.TokenUsername(); u != "" {
		return u, nil
	}
	return "", errors.New("username is required (pass it as an argument or log in first)")
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shellgame/token"
	}
	return filepath.Join(home, ".shellgame", "token")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
