package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-pdf-sequencer/internal/logger"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort         = 8080
	DefaultHost         = "127.0.0.1"
	DefaultLogLevel     = "info"
	DefaultMaxFileSize  = 100 * 1024 * 1024 // 100MB
	DefaultFetchTimeout = 30 * time.Second
	DefaultOutputDir    = "output"

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix prefixes every environment variable, e.g. PDF_SEQ_DIR.
	EnvPrefix = "PDF_SEQ"
)

// ErrVersionRequested is returned by LoadFromFlags when --version is passed.
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the sequencer server and CLI
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Input and output directories
	PDFDirectory    string
	OutputDirectory string

	// Rule definition sources, file paths or http(s) URLs
	GO95Source   string
	GO128Source  string
	FetchTimeout time.Duration

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	LogPretty   bool
	MaxFileSize int64 // Maximum PDF file size in bytes
	Concurrency int
	MetricsPort int // 0 disables the metrics endpoint
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:            ModeStdio,
		Host:            DefaultHost,
		Port:            DefaultPort,
		PDFDirectory:    currentDir,
		OutputDirectory: filepath.Join(currentDir, DefaultOutputDir),
		FetchTimeout:    DefaultFetchTimeout,
		Version:         "1.0.0",
		ServerName:      "mcp-pdf-sequencer",
		LogLevel:        DefaultLogLevel,
		MaxFileSize:     DefaultMaxFileSize,
		Concurrency:     runtime.NumCPU(),
	}
}

// RegisterFlags defines the shared configuration flags on fs.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP/SSE server")
	fs.String("host", cfg.Host, "Server host address (server mode only)")
	fs.Int("port", cfg.Port, "Server port (server mode only)")
	fs.String("dir", cfg.PDFDirectory, "Directory input PDF files and lookup tables are read from")
	fs.String("outdir", cfg.OutputDirectory, "Directory archives and spreadsheets are written to")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Bool("logpretty", cfg.LogPretty, "Human-readable console logs instead of JSON")
	fs.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	fs.Int("concurrency", cfg.Concurrency, "Maximum concurrently processed documents and pages")
	fs.String("go95", cfg.GO95Source, "GO 95 rule definitions, file path or URL")
	fs.String("go128", cfg.GO128Source, "GO 128 rule definitions, file path or URL")
	fs.Duration("fetchtimeout", cfg.FetchTimeout, "Timeout for fetching remote rule definitions")
	fs.Int("metricsport", cfg.MetricsPort, "Port of the /metrics and /health endpoint, 0 disables it")
}

var keys = []string{
	"mode", "host", "port", "dir", "outdir", "loglevel", "logpretty", "maxfilesize",
	"concurrency", "go95", "go128", "fetchtimeout", "metricsport",
}

// Load parses args with fs, which must carry the flags of RegisterFlags, and
// layers flags over PDF_SEQ_* environment variables over defaults.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	cfg := DefaultConfig()
	v := newViper(cfg)

	if !fs.Parsed() {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
	}
	for _, key := range keys {
		if f := fs.Lookup(key); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}

	populateConfigFromViper(v, cfg)
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromFlags parses the process command line and returns a configuration
func LoadFromFlags() (*Config, error) {
	RegisterFlags(pflag.CommandLine, DefaultConfig())
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	return Load(pflag.CommandLine, os.Args[1:])
}

// newViper configures a viper instance with environment variables and defaults
func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("dir", cfg.PDFDirectory)
	v.SetDefault("outdir", cfg.OutputDirectory)
	v.SetDefault("loglevel", cfg.LogLevel)
	v.SetDefault("logpretty", cfg.LogPretty)
	v.SetDefault("maxfilesize", cfg.MaxFileSize)
	v.SetDefault("concurrency", cfg.Concurrency)
	v.SetDefault("go95", cfg.GO95Source)
	v.SetDefault("go128", cfg.GO128Source)
	v.SetDefault("fetchtimeout", cfg.FetchTimeout)
	v.SetDefault("metricsport", cfg.MetricsPort)
	return v
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Sequencer - A Model Context Protocol server that splits, "+
			"sequences and analyzes PDF batches\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/pdfs --outdir=/path/to/out "+
			"# stdio mode with custom directories\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --metricsport=9090          # server mode with metrics\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		for _, key := range keys {
			fmt.Fprintf(os.Stderr, "  %s_%s\n", EnvPrefix, strings.ToUpper(key))
		}
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.Mode = v.GetString("mode")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.PDFDirectory = v.GetString("dir")
	cfg.OutputDirectory = v.GetString("outdir")
	cfg.LogLevel = v.GetString("loglevel")
	cfg.LogPretty = v.GetBool("logpretty")
	cfg.MaxFileSize = v.GetInt64("maxfilesize")
	cfg.Concurrency = v.GetInt("concurrency")
	cfg.GO95Source = v.GetString("go95")
	cfg.GO128Source = v.GetString("go128")
	cfg.FetchTimeout = v.GetDuration("fetchtimeout")
	cfg.MetricsPort = v.GetInt("metricsport")
}

func (c *Config) expandPaths() {
	if c.PDFDirectory != "" {
		if abs, err := filepath.Abs(c.PDFDirectory); err == nil {
			c.PDFDirectory = abs
		}
	}
	if c.OutputDirectory != "" {
		if abs, err := filepath.Abs(c.OutputDirectory); err == nil {
			c.OutputDirectory = abs
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return errors.New("metrics port must be between 0 and 65535")
	}

	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	// Check if PDF directory exists, create if it doesn't
	if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create PDF directory %s: %w", c.PDFDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	}

	// the output directory is created when the first output is written
	if c.OutputDirectory == "" {
		return errors.New("output directory cannot be empty")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}

	if c.FetchTimeout <= 0 {
		return errors.New("fetch timeout must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// LoggerConfig returns the logger settings.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.LogLevel, Pretty: c.LogPretty}
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, OutputDirectory: %s, "+
		"LogLevel: %s, MaxFileSize: %d, Concurrency: %d, MetricsPort: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.OutputDirectory,
		c.LogLevel, c.MaxFileSize, c.Concurrency, c.MetricsPort)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
