// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns cleaned OCR text into a Recipe by asking a local
// language model for structured JSON and filling the template's defaults.
package extract

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pdiddy/cookbook/pkg/types"
)

const (
	defaultTitle = "Untitled Recipe"
	unknown      = "Unknown"

	placeholderDescription = "[Brief description of the dish]"
)

// LLMBackend abstracts the model API so tests can supply a mock.
type LLMBackend interface {
	Extract(ctx context.Context, ocrText string) (RecipeData, error)
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// Recipe extracts structured data from ocrText and converts it to a Recipe.
// The raw model answer is returned alongside for debug output.
func Recipe(ctx context.Context, backend LLMBackend, ocrText string, maxRetries int) (types.Recipe, RecipeData, error) {
	if strings.TrimSpace(ocrText) == "" {
		return types.Recipe{}, RecipeData{}, errors.New("no OCR text to extract from")
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	data, err := callWithRetry(ctx, backend, ocrText, maxRetries)
	if err != nil {
		return types.Recipe{}, RecipeData{}, err
	}
	return ToRecipe(data), data, nil
}

// callWithRetry calls the backend with exponential backoff. Context
// cancellation is never retried.
func callWithRetry(ctx context.Context, backend LLMBackend, ocrText string, maxRetries int) (RecipeData, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return RecipeData{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		data, err := backend.Extract(ctx, ocrText)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return RecipeData{}, ctx.Err()
		}
		lastErr = err
	}
	return RecipeData{}, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// ToRecipe applies the template defaults to a model answer: "Untitled
// Recipe" for a missing title, "Unknown" for missing origin and timing,
// no placeholder descriptions, and named groups preferred over the flat
// ingredient list.
func ToRecipe(d RecipeData) types.Recipe {
	r := types.Recipe{
		Title:     orDefault(d.Title, defaultTitle),
		Origin:    orDefault(d.Origin, unknown),
		Serves:    orDefault(d.Servings, unknown),
		PrepTime:  orDefault(d.PrepTime, unknown),
		CookTime:  orDefault(d.CookTime, unknown),
		TotalTime: orDefault(d.TotalTime, unknown),
		ChefsNote: strings.TrimSpace(d.ChefsNote),
		CSSClass:  "cookbook",
		Tags:      []string{"recipe"},
	}

	if desc := strings.TrimSpace(d.Description); desc != placeholderDescription {
		r.Description = desc
	}

	switch {
	case len(d.IngredientGroups) > 0:
		r.IngredientGroups = d.IngredientGroups
	case len(d.Ingredients) > 0:
		r.IngredientGroups = []types.IngredientGroup{{Items: d.Ingredients}}
	}

	for _, step := range d.Instructions {
		if s := strings.TrimSpace(step); s != "" {
			r.Instructions = append(r.Instructions, s)
		}
	}
	r.Notes = d.Notes
	return r
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
