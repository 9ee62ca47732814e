// Package config resolves docserve settings from flags, environment, .env
// files and an optional config file.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. DOCSERVE_PORT.
const EnvPrefix = "DOCSERVE"

// Keys double as flag names and config file keys.
const (
	KeyConfig          = "config"
	KeyHost            = "host"
	KeyPort            = "port"
	KeyDescription     = "description"
	KeyDocsPath        = "docs-path"
	KeyRenderer        = "renderer"
	KeyTitle           = "title"
	KeyAssetsDir       = "assets-dir"
	KeyCORSOrigins     = "cors-origins"
	KeyCompress        = "compress"
	KeyBasicAuth       = "basic-auth"
	KeyJWTSecret       = "jwt-secret"
	KeyJWTPublicKey    = "jwt-public-key"
	KeyMaxConnections  = "max-connections"
	KeyShutdownTimeout = "shutdown-timeout"
	KeyLogLevel        = "log-level"
	KeyLogFormat       = "log-format"
)

// Defaults match the behaviour of the server with no configuration at all.
const (
	DefaultPort            = 3000
	DefaultDescription     = "./swagger.yaml"
	DefaultDocsPath        = "/api-docs"
	DefaultRenderer        = "swagger-ui"
	DefaultShutdownTimeout = 10 * time.Second
)

// DefaultConfigName is looked up in the working directory when --config is
// not given.
const DefaultConfigName = ".docserve"

// Config holds the resolved settings.
type Config struct {
	Host        string
	Port        int
	Description string
	DocsPath    string
	Renderer    string
	Title       string
	AssetsDir   string

	CORSOrigins []string
	Compress    bool

	BasicAuthUser     string
	BasicAuthPassword string
	JWTSecret         string
	// JWTPublicKey is a PEM file with the RSA key that verifies RS256 tokens.
	JWTPublicKey string

	MaxConnections  int
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	// ConfigFile is the config file actually read, if any.
	ConfigFile string
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Port:            DefaultPort,
		Description:     DefaultDescription,
		DocsPath:        DefaultDocsPath,
		Renderer:        DefaultRenderer,
		Compress:        true,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

// SetDefaults registers the defaults on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyPort, d.Port)
	v.SetDefault(KeyDescription, d.Description)
	v.SetDefault(KeyDocsPath, d.DocsPath)
	v.SetDefault(KeyRenderer, d.Renderer)
	v.SetDefault(KeyCompress, d.Compress)
	v.SetDefault(KeyShutdownTimeout, d.ShutdownTimeout)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFormat, d.LogFormat)
}

// LoadEnvFiles loads .env style files into the process environment. Files
// listed first win; variables already set in the environment are kept.
// Missing files are ignored.
func LoadEnvFiles(files ...string) {
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// Load resolves the configuration from v. Precedence, highest first: flags
// bound to v, environment, config file, defaults.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyLogLevel, EnvPrefix+"_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv(KeyLogFormat, EnvPrefix+"_LOG_FORMAT", "LOG_FORMAT")

	if file := v.GetString(KeyConfig); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", file, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	cfg := Config{
		Host:            v.GetString(KeyHost),
		Port:            v.GetInt(KeyPort),
		Description:     v.GetString(KeyDescription),
		DocsPath:        NormalizePath(v.GetString(KeyDocsPath)),
		Renderer:        v.GetString(KeyRenderer),
		Title:           v.GetString(KeyTitle),
		AssetsDir:       v.GetString(KeyAssetsDir),
		CORSOrigins:     splitList(v.GetStringSlice(KeyCORSOrigins)),
		Compress:        v.GetBool(KeyCompress),
		JWTSecret:       v.GetString(KeyJWTSecret),
		JWTPublicKey:    v.GetString(KeyJWTPublicKey),
		MaxConnections:  v.GetInt(KeyMaxConnections),
		ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
		ConfigFile:      v.ConfigFileUsed(),
	}

	if creds := v.GetString(KeyBasicAuth); creds != "" {
		user, pass, ok := strings.Cut(creds, ":")
		if !ok || user == "" || pass == "" {
			return Config{}, fmt.Errorf("%s must be user:password", KeyBasicAuth)
		}
		cfg.BasicAuthUser, cfg.BasicAuthPassword = user, pass
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if c.Description == "" {
		errs = append(errs, errors.New("description path is required"))
	}
	if err := validateDocsPath(c.DocsPath); err != nil {
		errs = append(errs, err)
	}
	// Renderer names are checked by docsui.New.
	if c.Renderer == "" {
		errs = append(errs, errors.New("renderer is required"))
	}
	if c.MaxConnections < 0 {
		errs = append(errs, fmt.Errorf("max connections must not be negative: %d", c.MaxConnections))
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must not be negative: %s", c.ShutdownTimeout))
	}
	if (c.BasicAuthUser == "") != (c.BasicAuthPassword == "") {
		errs = append(errs, errors.New("basic auth needs both user and password"))
	}
	if c.JWTSecret != "" && c.JWTPublicKey != "" {
		errs = append(errs, fmt.Errorf("%s and %s are mutually exclusive", KeyJWTSecret, KeyJWTPublicKey))
	}

	return errors.Join(errs...)
}

// Address is the listen address, e.g. ":3000".
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DocsURL is the documentation URL announced at startup.
func (c Config) DocsURL() string {
	host := c.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.Port)) + c.DocsPath
}

// NormalizePath trims surrounding space and trailing slashes.
func NormalizePath(p string) string {
	return strings.TrimRight(strings.TrimSpace(p), "/")
}

func validateDocsPath(p string) error {
	switch {
	case p == "":
		return errors.New("docs path must not be empty or /")
	case p[0] != '/':
		return fmt.Errorf("docs path must start with /: %q", p)
	case strings.ContainsAny(p, ":*{}?#"):
		return fmt.Errorf("docs path must be a literal path: %q", p)
	}
	return nil
}

// splitList accepts both repeated values and comma separated ones.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
