package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vk/slurmcodec/internal/parser"
	"github.com/vk/slurmcodec/internal/sentinel"
)

// Config holds all the necessary configuration for an App instance to run.
// The flag tags name the command-line flags that set each field and are used
// in validation messages.
type Config struct {
	// CatalogPaths are .hcl files or directories declaring tres, qos and
	// assoc blocks.
	CatalogPaths []string `flag:"catalog" validate:"dive,required"`
	Mode         string   `flag:"mode" validate:"required,sentinel_mode"`
	// APIVersion selects which deprecated fields are still accepted, e.g.
	// "v0.0.41". Empty accepts everything.
	APIVersion  string `flag:"api-version" validate:"omitempty,api_version"`
	LogFormat   string `flag:"log-format" validate:"required,oneof=text json"`
	LogLevel    string `flag:"log-level" validate:"required,oneof=debug info warn error"`
	MetricsFile string `flag:"metrics-file" validate:"omitempty,filepath"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("flag"); name != "" {
			return name
		}
		return f.Name
	})
	mustRegister(v, "sentinel_mode", func(fl validator.FieldLevel) bool {
		_, err := sentinel.ParseMode(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "api_version", func(fl validator.FieldLevel) bool {
		_, err := parser.ParseVersion(fl.Field().String())
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Errorf("failed to register validation %q: %w", tag, err))
	}
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	err := validate.Struct(cfg)
	if err == nil {
		return &cfg, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, "- "+describe(fe))
	}
	return nil, fmt.Errorf("invalid configuration:\n%s", strings.Join(msgs, "\n"))
}

func describe(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", name, fe.Param(), fe.Value())
	case "sentinel_mode":
		return fmt.Sprintf("%s must be 'compact' or 'verbose', got %q", name, fe.Value())
	case "api_version":
		return fmt.Sprintf("%s must look like v0.0.41, got %q", name, fe.Value())
	default:
		return fmt.Sprintf("%s failed the %q check on %q", name, fe.Tag(), fe.Value())
	}
}

// SentinelMode returns the parsed Mode. The config must have been validated.
func (c *Config) SentinelMode() sentinel.Mode {
	m, _ := sentinel.ParseMode(c.Mode)
	return m
}

// Version returns the parsed APIVersion, 0 when unset.
func (c *Config) Version() parser.Version {
	if c.APIVersion == "" {
		return 0
	}
	v, _ := parser.ParseVersion(c.APIVersion)
	return v
}
