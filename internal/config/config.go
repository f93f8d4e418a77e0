package config

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/arcadiusmc/delphi/internal/errors"
)

// FileNames are the config file names looked up in a directory, in order.
var FileNames = []string{"delphi.json", "delphi.yaml", "delphi.yml"}

const (
	DefaultDebugAddr   = "127.0.0.1:7071"
	DefaultBridgePath  = "/bridge"
	DefaultCallTimeout = "5s"
	DefaultDebounce    = "100ms"
	DefaultNamespace   = "delphi"
)

// Config is the complete Delphi configuration.
type Config struct {
	Log     LogConfig     `json:"log" yaml:"log"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Debug   DebugConfig   `json:"debug" yaml:"debug"`
	Bridge  BridgeConfig  `json:"bridge" yaml:"bridge"`
	Pages   PagesConfig   `json:"pages" yaml:"pages"`
	Journal JournalConfig `json:"journal" yaml:"journal"`

	path string
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text, json or auto.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// MetricsConfig names the Prometheus metrics.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Subsystem string `json:"subsystem,omitempty" yaml:"subsystem,omitempty"`
}

// DebugConfig configures the debug server and tree dumps.
type DebugConfig struct {
	// Addr is the debug server listen address. Empty disables the server.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// DumpDir receives tree dumps when S3 is not configured.
	DumpDir string `json:"dumpDir,omitempty" yaml:"dumpDir,omitempty"`

	S3 S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`

	// AllowedOrigins are the CORS origins of the debug server.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
}

// S3Config locates the S3 dump bucket.
type S3Config struct {
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
}

// BridgeConfig configures the remote host bridge.
type BridgeConfig struct {
	// Path is the HTTP path the bridge is mounted on.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// CallTimeout bounds one remote adapter call, e.g. "5s".
	CallTimeout string `json:"callTimeout,omitempty" yaml:"callTimeout,omitempty"`
}

// PagesConfig configures page loading.
type PagesConfig struct {
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Debounce delays reloads after a file change, e.g. "100ms".
	Debounce string `json:"debounce,omitempty" yaml:"debounce,omitempty"`
}

// JournalConfig configures the edit-script journal.
type JournalConfig struct {
	// Path is the journal file. Empty disables journaling.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Compress wraps the journal in a zstd stream.
	Compress bool `json:"compress,omitempty" yaml:"compress,omitempty"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "auto"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Debug.Addr == "" {
		c.Debug.Addr = DefaultDebugAddr
	}
	if c.Debug.DumpDir == "" {
		c.Debug.DumpDir = "dumps"
	}
	if c.Bridge.Path == "" {
		c.Bridge.Path = DefaultBridgePath
	}
	if c.Bridge.CallTimeout == "" {
		c.Bridge.CallTimeout = DefaultCallTimeout
	}
	if c.Pages.Dir == "" {
		c.Pages.Dir = "pages"
	}
	if c.Pages.Debounce == "" {
		c.Pages.Debounce = DefaultDebounce
	}
}

// Load reads the first config file found in dir. A directory without one
// yields the defaults.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return Default(), nil
}

// LoadFile reads the config at path. The format follows the extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("D001").
			WithDetail("Cannot read " + path).
			Wrap(err)
	}

	c, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	c.path = path
	return c, nil
}

// Parse decodes data as JSON with comments, or as YAML when ext is ".yaml"
// or ".yml", then applies defaults and validates.
func Parse(data []byte, ext string) (*Config, error) {
	c := &Config{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, errors.New("D002").
				WithSuggestion("Check indentation and that keys match the documented names").
				Wrap(err)
		}
	default:
		stripped := jsonc.ToJSON(data)
		if len(strings.TrimSpace(string(stripped))) > 0 {
			if err := json.Unmarshal(stripped, c); err != nil {
				return nil, errors.New("D002").
					WithSuggestion("Comments and trailing commas are allowed; everything else must be JSON").
					Wrap(err)
			}
		}
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"auto", "text", "json"}
)

// Validate checks every field and returns the first invalid one as a D003
// error.
func (c *Config) Validate() error {
	if !slices.Contains(logLevels, c.Log.Level) {
		return invalid("log.level %q", c.Log.Level).WithSuggestion("Use one of " + strings.Join(logLevels, ", "))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		return invalid("log.format %q", c.Log.Format).WithSuggestion("Use one of " + strings.Join(logFormats, ", "))
	}
	if c.Debug.Addr != "off" {
		if _, _, err := net.SplitHostPort(c.Debug.Addr); err != nil {
			return invalid("debug.addr %q", c.Debug.Addr).
				WithSuggestion("Use host:port, e.g. " + DefaultDebugAddr + ", or \"off\"").
				Wrap(err)
		}
	}
	if !strings.HasPrefix(c.Bridge.Path, "/") {
		return invalid("bridge.path %q", c.Bridge.Path).WithSuggestion("Paths start with /")
	}
	if d, err := time.ParseDuration(c.Bridge.CallTimeout); err != nil || d < 0 {
		return invalid("bridge.callTimeout %q", c.Bridge.CallTimeout).WithSuggestion("Use a Go duration like 5s")
	}
	if d, err := time.ParseDuration(c.Pages.Debounce); err != nil || d < 0 {
		return invalid("pages.debounce %q", c.Pages.Debounce).WithSuggestion("Use a Go duration like 100ms")
	}
	if c.Debug.S3.Prefix != "" && c.Debug.S3.Bucket == "" {
		return invalid("debug.s3.prefix set without debug.s3.bucket")
	}
	return nil
}

func invalid(format string, args ...any) *errors.DelphiError {
	return errors.New("D003").WithMessage("Invalid config value: "+format, args...)
}

// Path returns the file the config was loaded from, or "".
func (c *Config) Path() string { return c.path }

// Dir returns the directory of the config file, or ".".
func (c *Config) Dir() string {
	if c.path == "" {
		return "."
	}
	return filepath.Dir(c.path)
}

// Resolve makes p relative to the config directory unless it is absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// CallTimeout returns Bridge.CallTimeout parsed.
func (c *Config) CallTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Bridge.CallTimeout)
	return d
}

// Debounce returns Pages.Debounce parsed.
func (c *Config) Debounce() time.Duration {
	d, _ := time.ParseDuration(c.Pages.Debounce)
	return d
}

// DebugEnabled reports whether the debug server should run.
func (c *Config) DebugEnabled() bool {
	return c.Debug.Addr != "off"
}

// Exists reports whether dir holds a config file.
func Exists(dir string) bool {
	for _, name := range FileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up from startDir to the first directory holding a
// config file.
func FindProjectRoot(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}
	for {
		if Exists(dir) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads the config of the enclosing project, or the
// defaults when there is none.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, ok := FindProjectRoot(wd)
	if !ok {
		return Default(), nil
	}
	return Load(root)
}
