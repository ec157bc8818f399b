// Package config loads the nocsched configuration file.
//
// The file is TOML with one table per concern:
//
//	[timing]
//	link_width = 4
//	header_flits = 1
//	routing_time = 4
//	workers = 4
//
//	[solver]
//	binary = "minizinc"
//	backend = "Gecode"
//	model = "models/CM.mzn"
//	timeout = "10m"
//
//	[cache]
//	backend = "file"        # file, redis or none
//	redis_url = "redis://localhost:6379/0"
//
//	[store]
//	backend = "file"        # memory, file or mongo
//	mongo_uri = "mongodb://localhost:27017"
//
//	[server]
//	addr = ":8080"
//
//	[output]
//	dir = "out"
//
// Missing keys keep their defaults. Unknown keys are rejected so typos do not
// silently fall back to defaults. Command-line flags override file values.
package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/occupancy"
	"github.com/matzehuels/nocsched/pkg/solver"
	"github.com/matzehuels/nocsched/pkg/store"
)

// Config is the decoded configuration file.
type Config struct {
	Timing occupancy.Params `toml:"timing"`
	Solver Solver           `toml:"solver"`
	Cache  Cache            `toml:"cache"`
	Store  Store            `toml:"store"`
	Server Server           `toml:"server"`
	Output Output           `toml:"output"`
}

// Solver configures the external constraint solver.
type Solver struct {
	Binary  string   `toml:"binary"`
	Backend string   `toml:"backend"`
	Model   string   `toml:"model"`
	Timeout Duration `toml:"timeout"`
	Pad     int      `toml:"pad"`
}

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Cache configures the solver output cache.
type Cache struct {
	Backend  string   `toml:"backend"`
	Dir      string   `toml:"dir"`
	RedisURL string   `toml:"redis_url"`
	TTL      Duration `toml:"ttl"`
}

// Store configures the run archive.
type Store struct {
	Backend    string `toml:"backend"`
	Dir        string `toml:"dir"`
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Server configures `nocsched serve`.
type Server struct {
	Addr            string   `toml:"addr"`
	MaxBodyBytes    int64    `toml:"max_body_bytes"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// Output configures where generated files go.
type Output struct {
	Dir    string `toml:"dir"`
	SimDir string `toml:"sim_dir"`
}

// Defaults.
const (
	DefaultAddr            = ":8080"
	DefaultMaxBodyBytes    = 8 << 20
	DefaultShutdownTimeout = 10 * time.Second
	DefaultOutputDir       = "."
	DefaultSimDir          = "packets"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	c.Timing.SetDefaults()
	if c.Solver.Binary == "" {
		c.Solver.Binary = solver.DefaultBinary
	}
	if c.Solver.Backend == "" {
		c.Solver.Backend = solver.DefaultBackend
	}
	if c.Solver.Timeout == 0 {
		c.Solver.Timeout = Duration(solver.DefaultTimeout)
	}
	if c.Solver.Pad == 0 {
		c.Solver.Pad = solver.DefaultPad
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheFile
	}
	if c.Store.Backend == "" {
		c.Store.Backend = store.BackendFile
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Output.SimDir == "" {
		c.Output.SimDir = DefaultSimDir
	}
}

// Validate checks value ranges and backend names.
func (c *Config) Validate() error {
	if err := c.Timing.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "[timing]")
	}
	if c.Solver.Pad < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "[solver] pad must not be negative")
	}
	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "[cache] redis backend requires redis_url")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "[cache] unknown backend %q", c.Cache.Backend)
	}
	switch c.Store.Backend {
	case store.BackendMemory, store.BackendFile:
	case store.BackendMongo:
		if c.Store.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "[store] mongo backend requires mongo_uri")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "[store] unknown backend %q", c.Store.Backend)
	}
	if c.Server.MaxBodyBytes < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "[server] max_body_bytes must not be negative")
	}
	return nil
}

// Load reads path, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	c := &Config{}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "config %s: unknown key %s", path, undecoded[0])
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadDefault loads [DefaultPath] if it exists and returns the defaults
// otherwise.
func LoadDefault() (*Config, error) {
	path := DefaultPath()
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return Default(), nil
	}
	return Load(path)
}

// DefaultPath returns $XDG_CONFIG_HOME/nocsched/config.toml, falling back to
// ~/.config. It returns "" when no home directory is known.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "nocsched", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "nocsched", "config.toml")
}

// MiniZinc returns a solver runner for the [solver] table.
func (c *Config) MiniZinc() *solver.MiniZinc {
	return &solver.MiniZinc{
		Binary:    c.Solver.Binary,
		Backend:   c.Solver.Backend,
		ModelPath: c.Solver.Model,
		Timeout:   time.Duration(c.Solver.Timeout),
	}
}

// StoreConfig returns the archive settings of the [store] table.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Backend:    c.Store.Backend,
		Dir:        c.Store.Dir,
		MongoURI:   c.Store.MongoURI,
		Database:   c.Store.Database,
		Collection: c.Store.Collection,
	}
}

// Duration is a time.Duration written as a string such as "90s" or "10m".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }
