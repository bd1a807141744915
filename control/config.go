// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Server configuration: TOML file loading, defaults, validation and a
// thread-safe store with reload propagation.

package control

import (
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/momentics/cnet/api"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Defaults applied by DefaultConfig and to zero fields of a loaded file.
const (
	DefaultPort        = "5001"
	DefaultBacklog     = 10
	DefaultPollTimeout = "50us"
	DefaultReadBuffer  = "1KiB"
	DefaultWorkers     = 4
	DefaultQueueLimit  = 128
)

// Config describes one socket server.
type Config struct {
	Address     string   `toml:"address"`
	Port        string   `toml:"port"`
	Protocol    string   `toml:"protocol"`
	IPv6        bool     `toml:"ipv6"`
	Options     []string `toml:"options"`
	Backlog     int      `toml:"backlog"`
	PollTimeout string   `toml:"poll_timeout"`
	ReadBuffer  string   `toml:"read_buffer"`
	Workers     int      `toml:"workers"`
	QueueLimit  int      `toml:"queue_limit"`
	LogLevel    string   `toml:"log_level"`
	MetricsAddr string   `toml:"metrics_addr"`
}

// DefaultConfig returns a TCP server on all IPv4 interfaces with the default
// socket options.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.Protocol == "" {
		c.Protocol = api.ProtocolTCP.String()
	}
	if len(c.Options) == 0 {
		for _, o := range api.DefaultSocketOptions {
			c.Options = append(c.Options, o.String())
		}
	}
	if c.Backlog == 0 {
		c.Backlog = DefaultBacklog
	}
	if c.PollTimeout == "" {
		c.PollTimeout = DefaultPollTimeout
	}
	if c.ReadBuffer == "" {
		c.ReadBuffer = DefaultReadBuffer
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.QueueLimit == 0 {
		c.QueueLimit = DefaultQueueLimit
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// LoadFile reads a TOML file, fills unset fields with defaults and validates
// the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate checks every field that the server interprets. The returned error
// matches api.ErrContractViolation.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.Wrap(api.ErrContractViolation, "port is required")
	}
	if _, err := c.ProtocolValue(); err != nil {
		return err
	}
	if _, err := c.SocketOptions(); err != nil {
		return err
	}
	if c.Backlog < 0 {
		return errors.Wrapf(api.ErrContractViolation, "negative backlog %d", c.Backlog)
	}
	if _, err := c.PollTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.ReadBufferBytes(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return errors.Wrapf(api.ErrContractViolation, "workers must be positive, got %d", c.Workers)
	}
	if c.QueueLimit < 1 {
		return errors.Wrapf(api.ErrContractViolation, "queue_limit must be positive, got %d", c.QueueLimit)
	}
	return nil
}

// ProtocolValue parses the protocol field.
func (c *Config) ProtocolValue() (api.Protocol, error) {
	return api.ParseProtocol(c.Protocol)
}

// SocketOptions parses the option names in order. An empty list is an error:
// sockets are never created without options.
func (c *Config) SocketOptions() ([]api.SocketOption, error) {
	if len(c.Options) == 0 {
		return nil, errors.Wrap(api.ErrContractViolation, "empty socket opts")
	}
	opts := make([]api.SocketOption, 0, len(c.Options))
	for _, name := range c.Options {
		o, err := api.ParseSocketOption(name)
		if err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, nil
}

// AddressSpec builds the listen address from the config.
func (c *Config) AddressSpec() (api.AddressSpec, error) {
	proto, err := c.ProtocolValue()
	if err != nil {
		return api.AddressSpec{}, err
	}
	spec := api.AddressSpec{
		Host:      strings.TrimSpace(c.Address),
		Port:      c.Port,
		Family:    api.FamilyIPv4,
		Transport: proto.Transport(),
	}
	if c.IPv6 {
		spec.Family = api.FamilyIPv6
	}
	return spec, nil
}

// PollTimeoutDuration parses the readiness wait bound.
func (c *Config) PollTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.PollTimeout)
	if err != nil || d <= 0 {
		return 0, errors.Wrapf(api.ErrContractViolation, "invalid poll_timeout %q", c.PollTimeout)
	}
	return d, nil
}

// ReadBufferBytes parses the read buffer size, accepting human sizes such as
// "4KiB" or "1m".
func (c *Config) ReadBufferBytes() (int, error) {
	n, err := units.RAMInBytes(c.ReadBuffer)
	if err != nil || n <= 0 {
		return 0, errors.Wrapf(api.ErrContractViolation, "invalid read_buffer %q", c.ReadBuffer)
	}
	return int(n), nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Options = append([]string(nil), c.Options...)
	return &out
}

// ConfigStore holds the active configuration with atomic snapshot and
// listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    *Config
	listeners []func(*Config)
}

// NewConfigStore initializes a store with cfg, or DefaultConfig when nil.
func NewConfigStore(cfg *Config) *ConfigStore {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &ConfigStore{config: cfg.Clone()}
}

// Snapshot returns a copy of the active configuration.
func (cs *ConfigStore) Snapshot() *Config {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.config.Clone()
}

// Update validates cfg, makes it active and runs every reload listener
// synchronously with the new snapshot. An invalid cfg leaves the store
// unchanged.
func (cs *ConfigStore) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cs.mu.Lock()
	cs.config = cfg.Clone()
	listeners := slices.Clone(cs.listeners)
	cs.mu.Unlock()

	for _, fn := range listeners {
		fn(cfg.Clone())
	}
	return nil
}

// Reload re-reads path and applies it with Update.
func (cs *ConfigStore) Reload(path string) error {
	cfg, err := LoadFile(path)
	if err != nil {
		return err
	}
	return cs.Update(cfg)
}

// OnReload registers a listener called after every successful Update.
func (cs *ConfigStore) OnReload(fn func(*Config)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
