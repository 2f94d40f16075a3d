package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrGeneration   = errors.New("upstream_generation_failure")
)

var (
	ErrMissingIngredients = fmt.Errorf("%w: at least one ingredient is required", ErrInvalidInput)
	ErrInvalidSpiceLevel  = fmt.Errorf("%w: spice_level must be between 1 and 5", ErrInvalidInput)
	ErrInvalidCookTime    = fmt.Errorf("%w: cook_time must be between 1 and %d minutes", ErrInvalidInput, MaxCookTime)
	ErrInvalidDifficulty  = fmt.Errorf("%w: difficulty must be easy, medium or hard", ErrInvalidInput)
	ErrInvalidPortions    = fmt.Errorf("%w: portions must be between 1 and %d", ErrInvalidInput, MaxPortions)
)
