package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default values for the configuration.
const (
	DefaultHTTPPort   = 8050
	DefaultGRPCPort   = 50051
	DefaultDataPath   = "spacex_launch_dash.csv"
	DefaultAuthHeader = "x-api-key"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
)

// Config is the full launchdash configuration file.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	// HTTPPort serves the REST API, the WebSocket session endpoint and /metrics.
	HTTPPort int `yaml:"http_port" validate:"min=1,max=65535"`

	// GRPCPort serves the gRPC health service. 0 disables the listener.
	GRPCPort int `yaml:"grpc_port" validate:"min=0,max=65535"`

	// UIDir, when set, is served as a static front end at "/".
	UIDir string `yaml:"ui_dir"`

	CORS CORSConfig `yaml:"cors"`
	Auth AuthConfig `yaml:"auth"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// AuthConfig controls client authentication for the API and gRPC listener.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode" validate:"omitempty,oneof=apikey none"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env" validate:"required_if=Mode apikey"`

	// Header is the HTTP header (and gRPC metadata key) carrying the key.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return DefaultAuthHeader
}

// DataConfig locates the launch records CSV.
type DataConfig struct {
	Path string `yaml:"path" validate:"required"`

	// Watch reloads the data file when it changes on disk.
	Watch bool `yaml:"watch"`

	Columns ColumnsConfig `yaml:"columns"`
}

// ColumnsConfig names the CSV header of each record field.
type ColumnsConfig struct {
	Site    string `yaml:"site" validate:"required"`
	Payload string `yaml:"payload" validate:"required"`
	Booster string `yaml:"booster" validate:"required"`
	Outcome string `yaml:"outcome" validate:"required"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// SlogLevel converts Level to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values. It is also
// the configuration used when no file is given.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			GRPCPort: DefaultGRPCPort,
			CORS:     CORSConfig{AllowedOrigins: []string{"*"}},
			Auth:     AuthConfig{Mode: "none"},
		},
		Data: DataConfig{
			Path:  DefaultDataPath,
			Watch: true,
			Columns: ColumnsConfig{
				Site:    "Launch Site",
				Payload: "Payload Mass (kg)",
				Booster: "Booster Version Category",
				Outcome: "class",
			},
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

var validate = newValidator()

func newValidator() func(*Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report yaml keys rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return func(cfg *Config) error {
		err := v.Struct(cfg)
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			// Namespace is "Config.server.http_port"; drop the type name.
			_, field, _ := strings.Cut(fe.Namespace(), ".")
			msgs = append(msgs, fmt.Sprintf("%s %q fails %q", field, fmt.Sprint(fe.Value()), tagDesc(fe)))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
}

func tagDesc(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
