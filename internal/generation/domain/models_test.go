package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAppliesDefaults(t *testing.T) {
	p, err := Parameters{Ingredients: []string{" eggs ", "", "rice"}}.Normalize()
	require.NoError(t, err)

	assert.Equal(t, []string{"eggs", "rice"}, p.Ingredients)
	assert.Equal(t, DefaultCuisine, p.Cuisine)
	assert.Equal(t, DefaultSpiceLevel, p.SpiceLevel)
	assert.Equal(t, DefaultCookTime, p.CookTime)
	assert.Equal(t, DefaultDifficulty, p.Difficulty)
	assert.Equal(t, DefaultPortions, p.Portions)
}

func TestNormalizeRejectsInvalidInput(t *testing.T) {
	cases := map[string]struct {
		params Parameters
		want   error
	}{
		"no ingredients": {Parameters{Ingredients: []string{"  "}}, ErrMissingIngredients},
		"spice":          {Parameters{Ingredients: []string{"eggs"}, SpiceLevel: 6}, ErrInvalidSpiceLevel},
		"cook time":      {Parameters{Ingredients: []string{"eggs"}, CookTime: -5}, ErrInvalidCookTime},
		"difficulty":     {Parameters{Ingredients: []string{"eggs"}, Difficulty: "insane"}, ErrInvalidDifficulty},
		"portions":       {Parameters{Ingredients: []string{"eggs"}, Portions: 21}, ErrInvalidPortions},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tc.params.Normalize()
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	p, err := Parameters{
		Ingredients: []string{"tofu"},
		Dietary:     []string{"vegan"},
		Cuisine:     "Thai",
		SpiceLevel:  5,
		CookTime:    45,
		Difficulty:  "Hard",
		Portions:    4,
	}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "Thai", p.Cuisine)
	assert.Equal(t, "hard", p.Difficulty)
	assert.Equal(t, 4, p.Portions)
	assert.Equal(t, []string{"vegan"}, p.Dietary)
}
