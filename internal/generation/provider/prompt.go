package provider

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/recipeverse/internal/generation/domain"
)

// BuildPrompt renders the user message for a normalized parameter set.
func BuildPrompt(p domain.Parameters) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s recipe using: %s.\n", p.Cuisine, strings.Join(p.Ingredients, ", "))
	if len(p.Dietary) > 0 {
		fmt.Fprintf(&b, "Dietary requirements: %s.\n", strings.Join(p.Dietary, ", "))
	}
	fmt.Fprintf(&b, "Spice level: %d out of 5.\n", p.SpiceLevel)
	fmt.Fprintf(&b, "Total cooking time: about %d minutes.\n", p.CookTime)
	fmt.Fprintf(&b, "Difficulty: %s.\n", p.Difficulty)
	fmt.Fprintf(&b, "Servings: %d.\n", p.Portions)
	b.WriteString("Start with a markdown heading containing the recipe title, then list ingredients with quantities, numbered steps and a short nutrition estimate.")
	return b.String()
}

// ExtractTitle returns the first markdown heading of text.
func ExtractTitle(text, cuisine string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}
		title := strings.TrimSpace(strings.TrimLeft(line, "#"))
		title = strings.Trim(title, "*_ ")
		if title != "" {
			return title
		}
	}
	cuisine = strings.TrimSpace(cuisine)
	if cuisine == "" {
		cuisine = domain.DefaultCuisine
	}
	return cuisine + " recipe"
}
