package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate comprueba las reglas de cada campo y las que cruzan campos.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return fmt.Errorf("register loglevel: %w", err)
	}

	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return validateCrossField(cfg)
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateCrossField comprueba las reglas entre campos.
func validateCrossField(cfg *Config) error {
	e := cfg.Engine
	if e.Tier2MinSize > e.Tier2MaxSize {
		return fmt.Errorf("engine.tier2_min_size (%d) must be <= tier2_max_size (%d)", e.Tier2MinSize, e.Tier2MaxSize)
	}
	if e.MaxVisibleBets > 0 && e.MaxVisibleBets < e.MinVisibleBets {
		return fmt.Errorf("engine.max_visible_bets (%d) must be >= min_visible_bets (%d)", e.MaxVisibleBets, e.MinVisibleBets)
	}
	if e.WAccuracy+e.WEdge+e.WFalsePositive == 0 {
		return fmt.Errorf("engine: accuracy, edge and false positive weights are all zero")
	}
	return nil
}

func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
