package domain

import (
	"context"
	"strings"
)

const (
	DefaultCuisine    = "Random"
	DefaultSpiceLevel = 3
	DefaultCookTime   = 30
	DefaultDifficulty = "easy"
	DefaultPortions   = 2

	MaxCookTime = 24 * 60
	MaxPortions = 20
)

var difficulties = map[string]struct{}{
	"easy":   {},
	"medium": {},
	"hard":   {},
}

// Parameters are the user-supplied recipe constraints.
type Parameters struct {
	Ingredients []string `json:"ingredients"`
	Dietary     []string `json:"dietary,omitempty"`
	Cuisine     string   `json:"cuisine,omitempty"`
	SpiceLevel  int      `json:"spice_level,omitempty"`
	CookTime    int      `json:"cook_time,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
	Portions    int      `json:"portions,omitempty"`
}

// Normalize trims values, applies defaults and validates ranges.
func (p Parameters) Normalize() (Parameters, error) {
	p.Ingredients = compact(p.Ingredients)
	if len(p.Ingredients) == 0 {
		return Parameters{}, ErrMissingIngredients
	}
	p.Dietary = compact(p.Dietary)

	p.Cuisine = strings.TrimSpace(p.Cuisine)
	if p.Cuisine == "" {
		p.Cuisine = DefaultCuisine
	}

	switch {
	case p.SpiceLevel == 0:
		p.SpiceLevel = DefaultSpiceLevel
	case p.SpiceLevel < 1 || p.SpiceLevel > 5:
		return Parameters{}, ErrInvalidSpiceLevel
	}

	switch {
	case p.CookTime == 0:
		p.CookTime = DefaultCookTime
	case p.CookTime < 0 || p.CookTime > MaxCookTime:
		return Parameters{}, ErrInvalidCookTime
	}

	p.Difficulty = strings.ToLower(strings.TrimSpace(p.Difficulty))
	if p.Difficulty == "" {
		p.Difficulty = DefaultDifficulty
	}
	if _, ok := difficulties[p.Difficulty]; !ok {
		return Parameters{}, ErrInvalidDifficulty
	}

	switch {
	case p.Portions == 0:
		p.Portions = DefaultPortions
	case p.Portions < 1 || p.Portions > MaxPortions:
		return Parameters{}, ErrInvalidPortions
	}

	return p, nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

type Result struct {
	Text             string
	Title            string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Gateway performs exactly one upstream generation call per invocation.
type Gateway interface {
	Generate(ctx context.Context, params Parameters) (Result, error)
}
