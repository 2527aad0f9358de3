// Package config holds the knobs of the lowering pipeline. Defaults are
// overridden by BELL_* environment variables, which are in turn overridden
// by explicit command-line flags.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/xyproto/env/v2"
)

// OptLevel selects which optional passes run.
type OptLevel int

const (
	OptDebug   OptLevel = iota // no MIR optimization, no LIR peephole
	OptRelease                 // every pass
)

func (o OptLevel) String() string {
	switch o {
	case OptDebug:
		return "debug"
	case OptRelease:
		return "release"
	default:
		return "unknown"
	}
}

// ParseOptLevel accepts "0"/"debug" and "1"/"release".
func ParseOptLevel(s string) (OptLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "debug":
		return OptDebug, nil
	case "1", "release", "":
		return OptRelease, nil
	}
	return OptRelease, fmt.Errorf("unknown optimization level %q", s)
}

const (
	DefaultNamespace   = "bell"
	DefaultObjective   = "bell"
	DefaultMaxDepth    = 32
	DefaultInlineLimit = 4
)

// Config is shared read-only by every stage once compilation starts.
type Config struct {
	Namespace   string   // datapack namespace used in `function ns:name`
	Objective   string   // scoreboard objective holding every cell
	MaxDepth    int      // highest activation depth of a recursion group or loop
	InlineLimit int      // longest arm inlined with per-command guards
	Workers     int      // concurrent lowering units
	OptLevel    OptLevel // optional passes
	Debug       bool     // phase banners and IR dumps
	Strict      bool     // simulator rejects reads of unset cells
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Namespace:   DefaultNamespace,
		Objective:   DefaultObjective,
		MaxDepth:    DefaultMaxDepth,
		InlineLimit: DefaultInlineLimit,
		Workers:     runtime.NumCPU(),
		OptLevel:    OptRelease,
		Strict:      true,
	}
}

// FromEnv returns the default configuration with BELL_* overrides applied.
func FromEnv() *Config {
	cfg := Default()
	cfg.Namespace = env.Str("BELL_NAMESPACE", cfg.Namespace)
	cfg.Objective = env.Str("BELL_OBJECTIVE", cfg.Objective)
	cfg.MaxDepth = env.Int("BELL_MAX_DEPTH", cfg.MaxDepth)
	cfg.InlineLimit = env.Int("BELL_INLINE_LIMIT", cfg.InlineLimit)
	cfg.Workers = env.Int("BELL_WORKERS", cfg.Workers)
	cfg.Debug = env.Bool("BELL_DEBUG")
	if level, err := ParseOptLevel(env.Str("BELL_OPT", cfg.OptLevel.String())); err == nil {
		cfg.OptLevel = level
	}
	return cfg
}

// Validate rejects configurations the pipeline cannot honour.
func (c *Config) Validate() error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth must not be negative, got %d", c.MaxDepth)
	}
	if c.InlineLimit < 0 {
		return fmt.Errorf("inline limit must not be negative, got %d", c.InlineLimit)
	}
	if !validName(c.Namespace) {
		return fmt.Errorf("invalid namespace %q", c.Namespace)
	}
	if c.Objective == "" || strings.ContainsAny(c.Objective, " \t\n") {
		return fmt.Errorf("invalid objective %q", c.Objective)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return nil
}

// DepthLimit resolves a per-function override against the global ceiling.
func (c *Config) DepthLimit(override int) int {
	if override > 0 {
		return override
	}
	return c.MaxDepth
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-' || r == '.') {
			return false
		}
	}
	return true
}
