package apigate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config holds the construction-time settings of a Client. It is not
// modified after New.
type Config struct {
	// Window is the fixed interval after which all permits are restored.
	Window time.Duration `mapstructure:"window" validate:"gt=0"`
	// RequestsPerWindow is the number of calls admitted per Window.
	RequestsPerWindow int `mapstructure:"requests_per_window" validate:"min=1"`
	// TokenLifespan is how long a token is reused. Zero means DefaultTokenLifespan.
	TokenLifespan time.Duration `mapstructure:"token_lifespan" validate:"gte=0"`
	// Endpoints maps logical operation names to base URLs.
	Endpoints map[string]string `mapstructure:"endpoints" validate:"dive,keys,required,endkeys,required,url"`
	// Admission selects blocking or fail-fast behaviour when a window is used up.
	Admission Admission `mapstructure:"admission" validate:"omitempty,oneof=wait fail_fast"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks c and returns a *ConfigError naming the first bad field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ConfigError{Field: "Config", Reason: err.Error()}
	}

	fe := verrs[0]
	return &ConfigError{Field: fe.Field(), Reason: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("must be greater than %s, got %v", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must not be negative, got %v", fe.Value())
	case "required":
		return "must not be empty"
	case "url":
		return fmt.Sprintf("%q is not an absolute URL", fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of %s, got %v", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// LoadConfig reads a Config from a YAML, JSON or TOML file. Every key can
// be overridden by an environment variable prefixed with APIGATE_, for
// example APIGATE_REQUESTS_PER_WINDOW. Durations use time.ParseDuration
// syntax ("1s", "10h"). Endpoint names are case-insensitive and are
// returned lower-cased.
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("token_lifespan", DefaultTokenLifespan)
	v.SetDefault("admission", string(AdmissionWait))

	v.SetConfigFile(path)
	v.SetEnvPrefix("APIGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Env lookups only apply to known keys.
	for _, key := range []string{"window", "requests_per_window"} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, &ConfigError{Field: key, Reason: err.Error()}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return Config{}, &ConfigError{Field: "file", Reason: err.Error()}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, &ConfigError{Field: "file", Reason: err.Error()}
	}

	return cfg, cfg.Validate()
}
