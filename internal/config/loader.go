package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/timeattack/internal/domain/model"
)

// Environment naming.
const (
	EnvPrefix = "TIMEATTACK_"
	EnvConfig = EnvPrefix + "CONFIG"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) at path, or TIMEATTACK_CONFIG when path is empty
//  3. env (prefix TIMEATTACK_)
func Load(_ context.Context, path string) (*Config, error) {
	const op = "config.load"
	base := New()

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, model.NewError(op, model.ErrConfig, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err))
		}
	}

	// TIMEATTACK_DROP_WEEKS -> drop_weeks. Underscores are kept to match koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, model.NewError(op, model.ErrConfig, fmt.Errorf("%w: env: %v", ErrLoadConfig, err))
	}
	// The path variable itself is not a config key.
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, model.NewError(op, model.ErrConfig, fmt.Errorf("%w: %v", ErrLoadConfig, err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field and reports all violations at once.
func (c *Config) Validate() error {
	const op = "config.validate"
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return model.NewError(op, model.ErrConfig, fmt.Errorf("%w: %v", ErrInvalidConfig, err))
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return model.NewError(op, model.ErrConfig, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; ")))
}
