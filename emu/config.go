package emu

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/kirsle/configdir"

	"rawrsgdb/emu/log"
)

// ConfigVersion is the version of the configuration schema written by
// SaveConfig. Files with an incompatible major version are rejected.
const ConfigVersion = "1.0.0"

var configConstraint = sync.OnceValue(func() *semver.Constraints {
	c, err := semver.NewConstraint("^1")
	if err != nil {
		panic(err)
	}
	return c
})

type Config struct {
	Version string        `toml:"version"`
	GDB     GDBConfig     `toml:"gdb"`
	Server  ServerConfig  `toml:"server"`
	Machine MachineConfig `toml:"machine"`

	TraceOut io.WriteCloser `toml:"-"`
}

type GDBConfig struct {
	StrictChecksum bool   `toml:"strict_checksum"`
	Ack            bool   `toml:"ack"`
	ExecFile       string `toml:"exec_file"`
	// OpenFailPrefix makes vFile:open fail for hex-encoded paths starting
	// with it.
	OpenFailPrefix string `toml:"open_fail_prefix"`
}

type ServerConfig struct {
	Listen      string `toml:"listen"`
	Websocket   string `toml:"websocket"`
	Serial      string `toml:"serial"`
	Baud        int    `toml:"baud"`
	ControlPort int    `toml:"control_port"`
}

type MachineConfig struct {
	// MaxSteps bounds a single continue, 0 means no limit.
	MaxSteps    uint64 `toml:"max_steps"`
	StackTop    uint64 `toml:"stack_top"`
	WatchBinary bool   `toml:"watch_binary"`
}

func DefaultConfig() Config {
	return Config{
		Version: ConfigVersion,
		GDB: GDBConfig{
			Ack:            true,
			ExecFile:       "/rawrs.elf",
			OpenFailPrefix: "6",
		},
		Server: ServerConfig{
			Listen: "localhost:1234",
			Baud:   115200,
		},
		Machine: MachineConfig{
			MaxSteps: 1 << 24,
			StackTop: 0x7ffff000,
		},
	}
}

// ConfigDir returns the rawrsgdb config directory, creating it if needed.
var ConfigDir = sync.OnceValue(func() string {
	dir := configdir.LocalConfig("rawrsgdb")
	if err := configdir.MakePath(dir); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})

const cfgFilename = "config.toml"

// LoadConfig loads the configuration at path. Keys missing from the file keep
// their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Check(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigOrDefault loads the configuration from the rawrsgdb config
// directory, or provide a default one.
func LoadConfigOrDefault() Config {
	path := filepath.Join(ConfigDir(), cfgFilename)
	cfg, err := LoadConfig(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.ModEmu.WarnZ("Invalid config, using defaults").String("path", path).Error("err", err).End()
		}
		return DefaultConfig()
	}
	return cfg
}

// Check validates the schema version.
func (cfg *Config) Check() error {
	if cfg.Version == "" {
		cfg.Version = ConfigVersion
		return nil
	}
	v, err := semver.NewVersion(cfg.Version)
	if err != nil {
		return fmt.Errorf("config version: %w", err)
	}
	if !configConstraint().Check(v) {
		return fmt.Errorf("config version %s is not supported (want %s)", v, configConstraint())
	}
	return nil
}

// SaveConfig into rawrsgdb config directory.
func SaveConfig(cfg Config) error {
	return saveConfig(filepath.Join(ConfigDir(), cfgFilename), cfg)
}

func saveConfig(path string, cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, buf, 0644)
}

// OpenAllowed returns the vFile:open predicate matching the configuration.
func (cfg GDBConfig) OpenAllowed() func(pathHex string) bool {
	prefix := cfg.OpenFailPrefix
	if prefix == "" {
		return func(string) bool { return true }
	}
	return func(pathHex string) bool {
		return !strings.HasPrefix(pathHex, prefix)
	}
}
