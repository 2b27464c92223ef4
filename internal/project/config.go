package project

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"lumen/internal/trace"
)

// Manifest is a loaded lumen.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

type Config struct {
	Package PackageConfig `toml:"package"`
	Check   CheckConfig   `toml:"check"`
	Output  OutputConfig  `toml:"output"`
	Trace   TraceConfig   `toml:"trace"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

type CheckConfig struct {
	MaxDiagnostics   int  `toml:"max_diagnostics"`
	Jobs             int  `toml:"jobs"`
	WholeFunctionSSA bool `toml:"whole_function_ssa"`
	// Cache enables the on-disk diagnostics cache.
	Cache bool `toml:"cache"`
}

// OutputConfig.Target names the backend the IR is meant for. It is only
// reported; no code is generated.
type OutputConfig struct {
	Target string `toml:"target"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
}

var knownTargets = map[string]bool{"rust": true, "c": true, "zig": true}

// DefaultConfig is used when no manifest is found.
func DefaultConfig() Config {
	return Config{
		Check:  CheckConfig{MaxDiagnostics: 100},
		Output: OutputConfig{Target: "rust"},
		Trace:  TraceConfig{Level: "off"},
	}
}

// LoadManifest finds lumen.toml above startDir and decodes it. ok is false
// when there is no manifest.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

// LoadConfig decodes one manifest on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return Config{}, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return Config{}, fmt.Errorf("%s: missing [package].name", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Check.MaxDiagnostics < 0 {
		return fmt.Errorf("[check].max_diagnostics must not be negative")
	}
	if c.Check.Jobs < 0 {
		return fmt.Errorf("[check].jobs must not be negative")
	}
	if c.Output.Target != "" && !knownTargets[c.Output.Target] {
		return fmt.Errorf("[output].target %q is not one of rust|c|zig", c.Output.Target)
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("[trace].level: %w", err)
	}
	return nil
}

// TraceLevel returns the parsed [trace].level; Validate has checked it.
func (c Config) TraceLevel() trace.Level {
	level, _ := trace.ParseLevel(c.Trace.Level)
	return level
}
