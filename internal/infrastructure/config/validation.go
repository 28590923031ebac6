package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// weightsSumTolerance is how far the six scoring weights may drift from
// summing to exactly 1.
const weightsSumTolerance = 1e-9

// Validator is a wrapper around go-playground/validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance with custom validation rules
func NewValidator() *Validator {
	v := validator.New()

	return &Validator{
		validate: v,
	}
}

// Validate validates a struct using validation tags
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return v.formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into readable messages
func (v *Validator) formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, e := range validationErrs {
			messages = append(messages, fmt.Sprintf(
				"field '%s' failed validation: %s (value: '%v')",
				e.Field(),
				e.Tag(),
				e.Value(),
			))
		}
		return fmt.Errorf("validation failed:\n  %s", strings.Join(messages, "\n  "))
	}
	return err
}

// ValidateConfig validates the entire configuration: struct tags first,
// then the cross-field rules the tags cannot express.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	if err := v.Validate(cfg); err != nil {
		return err
	}
	if err := validateWeights(cfg.Dispatch.Weights); err != nil {
		return err
	}
	if err := validateZones(cfg.Zones); err != nil {
		return err
	}
	return nil
}

// validateWeights checks the six scoring weights sum to 1.
func validateWeights(w WeightsConfig) error {
	if diff := math.Abs(w.Sum() - 1.0); diff > weightsSumTolerance {
		return fmt.Errorf("dispatch weights must sum to 1, got %.12f", w.Sum())
	}
	return nil
}

// validateZones checks a custom zone partition is internally consistent.
// An empty partition selects the built-in default and needs no checks.
func validateZones(zc ZonesConfig) error {
	if len(zc.Zones) == 0 {
		if len(zc.Adjacency) > 0 {
			return fmt.Errorf("zones adjacency given without zone definitions")
		}
		return nil
	}

	known := make(map[string]bool, len(zc.Zones))
	for _, z := range zc.Zones {
		if known[z.Name] {
			return fmt.Errorf("duplicate zone name '%s'", z.Name)
		}
		known[z.Name] = true
		if z.North <= z.South {
			return fmt.Errorf("zone '%s': north (%.4f) must be greater than south (%.4f)", z.Name, z.North, z.South)
		}
		if z.East <= z.West {
			return fmt.Errorf("zone '%s': east (%.4f) must be greater than west (%.4f)", z.Name, z.East, z.West)
		}
	}

	for name, neighbors := range zc.Adjacency {
		if !known[name] {
			return fmt.Errorf("adjacency references unknown zone '%s'", name)
		}
		for _, n := range neighbors {
			if !known[n] {
				return fmt.Errorf("zone '%s' lists unknown neighbor '%s'", name, n)
			}
			if n == name {
				return fmt.Errorf("zone '%s' cannot neighbor itself", name)
			}
			if !containsName(zc.Adjacency[n], name) {
				return fmt.Errorf("adjacency is not symmetric: '%s' lists '%s' but not the reverse", name, n)
			}
		}
	}
	return nil
}

func containsName(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}
