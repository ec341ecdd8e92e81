package api

import "fmt"

const (
	defaultHost = "api.code.mp"
	defaultPort = 50053
)

// Config configures a client's connection to a codemp server. Username
// and Password are required; Host, Port and TLS fall back to sane
// defaults when left nil.
type Config struct {
	Username string
	Password string
	Host     *string
	Port     *uint16
	TLS      *bool
}

// NewConfig builds a Config with only the required fields set.
func NewConfig(username, password string) Config {
	return Config{Username: username, Password: password}
}

func (c Config) host() string {
	if c.Host != nil {
		return *c.Host
	}
	return defaultHost
}

func (c Config) port() uint16 {
	if c.Port != nil {
		return *c.Port
	}
	return defaultPort
}

func (c Config) tls() bool {
	if c.TLS != nil {
		return *c.TLS
	}
	return true
}

// Endpoint composes the scheme://host:port address this configuration
// points at.
func (c Config) Endpoint() string {
	scheme := "http"
	if c.tls() {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.host(), c.port())
}
