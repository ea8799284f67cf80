// Package config loads texcalc server settings from a TOML file.
package config

import (
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"texcalc/protocol"
	"texcalc/registry"
)

// Procedure source kinds.
const (
	SourceFile = "file"
	SourceEtcd = "etcd"
	SourceNone = "none"
)

// Config is the complete server configuration.
type Config struct {
	Address      string
	Port         int
	MaxAttempts  int
	HeaderWidth  int
	BlockSize    int
	ExactFraming bool
	Expressions  bool
	RateLimit    float64
	RateBurst    int
	TeXOutput    string
	Log          LogConfig
	Procedures   ProcedureConfig
}

// LogConfig selects the logger.
type LogConfig struct {
	Level       string
	Development bool
}

// ProcedureConfig selects where procedure definitions come from.
type ProcedureConfig struct {
	Source          string
	File            string
	EtcdEndpoints   []string
	EtcdPrefix      string
	EtcdDialTimeout time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Address:     "127.0.0.1",
		Port:        1234,
		MaxAttempts: 10,
		HeaderWidth: protocol.HeaderWidth,
		BlockSize:   protocol.BlockSize,
		Expressions: true,
		Log:         LogConfig{Level: "info"},
		Procedures: ProcedureConfig{
			Source:          SourceNone,
			EtcdPrefix:      registry.DefaultPrefix,
			EtcdDialTimeout: 5 * time.Second,
		},
	}
}

// Framer returns the frame codec described by c.
func (c Config) Framer() protocol.Framer {
	return protocol.Framer{HeaderWidth: c.HeaderWidth, BlockSize: c.BlockSize}
}

type fileConfig struct {
	Address      string  `toml:"address"`
	Port         int     `toml:"port"`
	MaxAttempts  int     `toml:"max_attempts"`
	HeaderWidth  int     `toml:"header_width"`
	BlockSize    int     `toml:"block_size"`
	ExactFraming bool    `toml:"exact_framing"`
	Expressions  bool    `toml:"expressions"`
	RateLimit    float64 `toml:"rate_limit"`
	RateBurst    int     `toml:"rate_burst"`
	TeXOutput    string  `toml:"tex_output"`
	Log          struct {
		Level       string `toml:"level"`
		Development bool   `toml:"development"`
	} `toml:"log"`
	Procedures struct {
		Source          string   `toml:"source"`
		File            string   `toml:"file"`
		EtcdEndpoints   []string `toml:"etcd_endpoints"`
		EtcdPrefix      string   `toml:"etcd_prefix"`
		EtcdDialTimeout string   `toml:"etcd_dial_timeout"`
	} `toml:"procedures"`
}

// Load reads the file at path over the defaults. Keys absent from the file
// keep their default values.
func Load(path string) (Config, error) {
	var raw fileConfig
	md, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	return apply(raw, md)
}

// Parse is like Load but reads the TOML document from text.
func Parse(text string) (Config, error) {
	var raw fileConfig
	md, err := toml.Decode(text, &raw)
	if err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	return apply(raw, md)
}

func apply(raw fileConfig, md toml.MetaData) (Config, error) {
	if keys := md.Undecoded(); len(keys) != 0 {
		return Config{}, errors.Errorf("unknown config key %q", keys[0].String())
	}
	cfg := Default()

	if md.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}
	if md.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if md.IsDefined("max_attempts") {
		cfg.MaxAttempts = raw.MaxAttempts
	}
	if md.IsDefined("header_width") {
		cfg.HeaderWidth = raw.HeaderWidth
	}
	if md.IsDefined("block_size") {
		cfg.BlockSize = raw.BlockSize
	}
	if md.IsDefined("exact_framing") {
		cfg.ExactFraming = raw.ExactFraming
	}
	if md.IsDefined("expressions") {
		cfg.Expressions = raw.Expressions
	}
	if md.IsDefined("rate_limit") {
		cfg.RateLimit = raw.RateLimit
	}
	if md.IsDefined("rate_burst") {
		cfg.RateBurst = raw.RateBurst
	}
	if md.IsDefined("tex_output") {
		cfg.TeXOutput = strings.TrimSpace(raw.TeXOutput)
	}

	if md.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if md.IsDefined("log", "development") {
		cfg.Log.Development = raw.Log.Development
	}

	p := raw.Procedures
	if md.IsDefined("procedures", "source") {
		cfg.Procedures.Source = strings.ToLower(strings.TrimSpace(p.Source))
	}
	if md.IsDefined("procedures", "file") {
		cfg.Procedures.File = strings.TrimSpace(p.File)
		if !md.IsDefined("procedures", "source") {
			cfg.Procedures.Source = SourceFile
		}
	}
	if md.IsDefined("procedures", "etcd_endpoints") {
		cfg.Procedures.EtcdEndpoints = normalize(p.EtcdEndpoints)
	}
	if md.IsDefined("procedures", "etcd_prefix") {
		cfg.Procedures.EtcdPrefix = strings.TrimSpace(p.EtcdPrefix)
	}
	if md.IsDefined("procedures", "etcd_dial_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(p.EtcdDialTimeout))
		if err != nil {
			return Config{}, errors.Wrap(err, "parse etcd_dial_timeout")
		}
		cfg.Procedures.EtcdDialTimeout = d
	}

	return cfg, cfg.Validate()
}

// Validate reports the first inconsistency in c.
func (c Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return errors.Errorf("port %d out of range", c.Port)
	case c.MaxAttempts < 1:
		return errors.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	case c.HeaderWidth < 1:
		return errors.Errorf("header_width must be at least 1, got %d", c.HeaderWidth)
	case c.BlockSize <= c.HeaderWidth:
		return errors.Errorf("block_size %d must exceed header_width %d", c.BlockSize, c.HeaderWidth)
	case c.RateLimit < 0:
		return errors.Errorf("rate_limit must not be negative, got %v", c.RateLimit)
	case c.RateLimit > 0 && c.RateBurst < 1:
		return errors.New("rate_burst must be at least 1 when rate_limit is set")
	}
	switch c.Procedures.Source {
	case SourceNone:
	case SourceFile:
		if c.Procedures.File == "" {
			return errors.New("procedures.file is required for the file source")
		}
	case SourceEtcd:
		if len(c.Procedures.EtcdEndpoints) == 0 {
			return errors.New("procedures.etcd_endpoints is required for the etcd source")
		}
	default:
		return errors.Errorf("unknown procedure source %q", c.Procedures.Source)
	}
	return nil
}

func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := strings.TrimSpace(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}
