// Package config reads the TOML configuration of the binaries.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"go.dedis.ch/onet/v3/network"
)

// Default configuration values
const (
	DefaultAddress = "tls://127.0.0.1:7770"
	DefaultDataDir = "./db/rpc-server"
	DefaultTimeout = 10 * time.Second
)

var (
	ErrAddressInvalid = errors.New("address must look like tls://host:port")
	ErrDataDirMissing = errors.New("data directory is required")
	ErrTimeoutInvalid = errors.New("timeout must be positive")
)

// Duration is a time.Duration written as "10s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Server holds the configuration of a node.
type Server struct {
	// Address is where the node can be reached by clients.
	Address string
	// ListenAddress, if set, is the local address the node binds instead
	// of Address.
	ListenAddress string
	// URL, if set, is the websocket URL clients use instead of the one
	// derived from Address.
	URL         string
	Description string
	// DataDir holds the seed store and the public descriptor.
	DataDir string
	// Descriptor is the file the public part of the node is written to.
	// Defaults to DataDir/public.toml.
	Descriptor string
	// StatusAddress, if set, serves the HTTP status pages.
	StatusAddress string
	Debug         int
}

// DefaultServer returns a config with sensible defaults.
func DefaultServer() *Server {
	return &Server{
		Address:     DefaultAddress,
		Description: "auction service",
		DataDir:     DefaultDataDir,
	}
}

// LoadServer reads path on top of the defaults. An empty path returns the
// defaults.
func LoadServer(path string) (*Server, error) {
	c := DefaultServer()
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return c, c.Validate()
}

// Validate checks if the config is valid
func (c *Server) Validate() error {
	if !network.Address(c.Address).Valid() {
		return fmt.Errorf("%w: %q", ErrAddressInvalid, c.Address)
	}
	if c.DataDir == "" {
		return ErrDataDirMissing
	}
	return nil
}

// SeedPath is the file of the seed store.
func (c *Server) SeedPath() string {
	return filepath.Join(c.DataDir, "seeds.db")
}

// DescriptorPath is the file the public descriptor is written to.
func (c *Server) DescriptorPath() string {
	if c.Descriptor != "" {
		return c.Descriptor
	}
	return filepath.Join(c.DataDir, "public.toml")
}

// Client holds the configuration of the command line client.
type Client struct {
	// DataDir holds the seed store of the client.
	DataDir string
	// Descriptor is the public descriptor of the node to call.
	Descriptor string
	// Timeout bounds each call on its own, not the whole command.
	Timeout Duration
	Debug   int
}

// DefaultClient returns a config with sensible defaults.
func DefaultClient() *Client {
	return &Client{
		DataDir:    "./db/rpc-client",
		Descriptor: filepath.Join(DefaultDataDir, "public.toml"),
		Timeout:    Duration{DefaultTimeout},
	}
}

// LoadClient reads path on top of the defaults.
func LoadClient(path string) (*Client, error) {
	c := DefaultClient()
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return c, c.Validate()
}

// Validate checks if the config is valid
func (c *Client) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirMissing
	}
	if c.Timeout.Duration <= 0 {
		return ErrTimeoutInvalid
	}
	return nil
}

// SeedPath is the file of the seed store.
func (c *Client) SeedPath() string {
	return filepath.Join(c.DataDir, "seeds.db")
}
