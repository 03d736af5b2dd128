// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cookbook/internal/httputil"
	"github.com/pdiddy/cookbook/internal/recipe"
	"github.com/pdiddy/cookbook/pkg/types"
)

const meatballsJSON = `{
  "title": "Spicy Glazed Meatballs",
  "source": "Second-prize winner in The 2005 Old Farmer's Almanac Reader Recipe Contest for oatmeal",
  "description": "[Brief description of the dish]",
  "servings": "4 to 6",
  "prep_time": "20 minutes",
  "cook_time": "15 minutes",
  "total_time": "",
  "ingredients": ["unused"],
  "ingredient_groups": {"Meatballs": ["1 pound ground beef", "SO teaspoon seasoned salt"], "Glaze": ["½ cup ketchup"]},
  "instructions": ["Mix the meat. Keep it loose.", "", "Bake 15 minutes"],
  "notes": {"storage": "Freeze up to 3 months.", "make_ahead": "Shape the night before.", "wine": "red"},
  "personal_note": "Don't overmix."
}`

// mockBackend returns a fixed answer.
type mockBackend struct {
	data  RecipeData
	err   error
	calls int
}

func (m *mockBackend) Extract(_ context.Context, _ string) (RecipeData, error) {
	m.calls++
	return m.data, m.err
}

// failNTimesBackend fails the first N calls, then succeeds.
type failNTimesBackend struct {
	failures  int
	callCount int
	data      RecipeData
}

func (f *failNTimesBackend) Extract(_ context.Context, _ string) (RecipeData, error) {
	f.callCount++
	if f.callCount <= f.failures {
		return RecipeData{}, fmt.Errorf("transient error (call %d)", f.callCount)
	}
	return f.data, nil
}

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

func TestRecipeData_Unmarshal(t *testing.T) {
	var d RecipeData
	require.NoError(t, json.Unmarshal([]byte(meatballsJSON), &d))

	assert.Equal(t, "Spicy Glazed Meatballs", d.Title)
	assert.True(t, strings.HasPrefix(d.Origin, "Second-prize winner"), "source is read as origin")
	assert.Equal(t, "Don't overmix.", d.ChefsNote, "personal_note is read as chefs_note")

	require.Len(t, d.IngredientGroups, 2)
	assert.Equal(t, "Meatballs", d.IngredientGroups[0].Label, "groups keep key order")
	assert.Equal(t, "Glaze", d.IngredientGroups[1].Label)
	assert.Equal(t, "SO teaspoon seasoned salt", d.IngredientGroups[0].Items[1])

	assert.Equal(t, []types.Note{
		{Label: types.NoteMakeAhead, Text: "Shape the night before."},
		{Label: types.NoteStorage, Text: "Freeze up to 3 months."},
	}, d.Notes)
}

func TestRecipeData_Lenient(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, d RecipeData)
	}{
		{
			name:  "numeric servings",
			input: `{"servings": 4, "prep_time": 2.5}`,
			check: func(t *testing.T, d RecipeData) {
				assert.Equal(t, "4", d.Servings)
				assert.Equal(t, "2.5", d.PrepTime)
			},
		},
		{
			name:  "notes as a string become tips",
			input: `{"notes": "Use cold butter."}`,
			check: func(t *testing.T, d RecipeData) {
				assert.Equal(t, []types.Note{{Label: types.NoteTips, Text: "Use cold butter."}}, d.Notes)
			},
		},
		{
			name:  "instructions as one string",
			input: `{"instructions": "Mix.\n\nBake."}`,
			check: func(t *testing.T, d RecipeData) {
				assert.Equal(t, []string{"Mix.", "Bake."}, d.Instructions)
			},
		},
		{
			name:  "groups as an array",
			input: `{"ingredient_groups": [{"name": "For the glaze:", "items": ["ketchup"]}, {"label": "Empty", "items": []}]}`,
			check: func(t *testing.T, d RecipeData) {
				assert.Equal(t, []types.IngredientGroup{{Label: "For the glaze", Items: []string{"ketchup"}}}, d.IngredientGroups)
			},
		},
		{
			name:  "empty groups object",
			input: `{"ingredient_groups": {}, "notes": {}}`,
			check: func(t *testing.T, d RecipeData) {
				assert.Empty(t, d.IngredientGroups)
				assert.Empty(t, d.Notes)
			},
		},
		{
			name:  "origin wins over source",
			input: `{"origin": "Grandma", "source": "Magazine", "chefs_note": "", "personal_note": "ignored"}`,
			check: func(t *testing.T, d RecipeData) {
				assert.Equal(t, "Grandma", d.Origin)
				assert.Empty(t, d.ChefsNote)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d RecipeData
			require.NoError(t, json.Unmarshal([]byte(tt.input), &d))
			tt.check(t, d)
		})
	}
}

func TestRecipeData_RejectsNonObject(t *testing.T) {
	var d RecipeData
	assert.Error(t, json.Unmarshal([]byte(`["not", "a", "recipe"]`), &d))
	assert.Error(t, json.Unmarshal([]byte(`{"ingredient_groups": 7}`), &d))
}

func TestToRecipe_Defaults(t *testing.T) {
	r := ToRecipe(RecipeData{Ingredients: []string{"1 egg"}, Instructions: []string{" Beat the egg. ", ""}})

	assert.Equal(t, "Untitled Recipe", r.Title)
	assert.Equal(t, "Unknown", r.Origin)
	assert.Equal(t, "Unknown", r.Serves)
	assert.Equal(t, "Unknown", r.TotalTime)
	assert.Equal(t, []types.IngredientGroup{{Items: []string{"1 egg"}}}, r.IngredientGroups)
	assert.Equal(t, []string{"Beat the egg."}, r.Instructions)
	assert.Equal(t, "cookbook", r.CSSClass)
	assert.True(t, r.Complete())
}

func TestToRecipe_GroupsWinAndPlaceholderDropped(t *testing.T) {
	var d RecipeData
	require.NoError(t, json.Unmarshal([]byte(meatballsJSON), &d))
	r := ToRecipe(d)

	assert.Empty(t, r.Description)
	assert.True(t, r.Grouped())
	assert.NotContains(t, r.Ingredients(), "unused")
	assert.Equal(t, "Unknown", r.TotalTime)
	assert.Len(t, r.Instructions, 2)

	md, err := recipe.Render(r)
	require.NoError(t, err)
	assert.Contains(t, md, "**Meatballs**\n- 1 pound ground beef")
	assert.Contains(t, md, "1. **Mix the meat.** Keep it loose.")
	assert.Contains(t, md, "2. **Bake 15 minutes**")
	assert.Contains(t, md, "> **Chef's Note:** Don't overmix.")
	assert.Less(t, strings.Index(md, "**Meatballs**"), strings.Index(md, "**Glaze**"))
}

func TestCallWithRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		b := &failNTimesBackend{failures: 2, data: RecipeData{Title: "Soup"}}
		d, err := callWithRetry(context.Background(), b, "text", 3)
		require.NoError(t, err)
		assert.Equal(t, "Soup", d.Title)
		assert.Equal(t, 3, b.callCount)
	})

	t.Run("exhausts retries", func(t *testing.T) {
		b := &failNTimesBackend{failures: 10}
		_, err := callWithRetry(context.Background(), b, "text", 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 2 retries")
		assert.Equal(t, 3, b.callCount)
	})

	t.Run("cancelled context stops", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		b := &failNTimesBackend{failures: 10}
		_, err := callWithRetry(ctx, b, "text", 3)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, b.callCount)
	})
}

func TestRecipe(t *testing.T) {
	b := &mockBackend{data: RecipeData{Title: "Soup", Ingredients: []string{"water"}, Instructions: []string{"Boil."}}}
	r, raw, err := Recipe(context.Background(), b, "SOUP\nwater\nboil", 0)
	require.NoError(t, err)
	assert.Equal(t, "Soup", r.Title)
	assert.Equal(t, "Soup", raw.Title)

	_, _, err = Recipe(context.Background(), b, "   ", 0)
	assert.Error(t, err)
	assert.Equal(t, 1, b.calls, "blank OCR text never reaches the model")
}

func TestOllamaBackend_Extract(t *testing.T) {
	var got generateRequest
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(generateResponse{Response: meatballsJSON})
	}))
	defer ts.Close()

	b := NewOllama(types.ExtractionConfig{
		AIConfig:   types.AIConfig{Model: "llama3.1:8b", URL: ts.URL + "/", APIKey: "k123"},
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second},
	})
	d, err := b.Extract(context.Background(), "SPICY GLAZED MEATBALLS")
	require.NoError(t, err)

	assert.Equal(t, "Spicy Glazed Meatballs", d.Title)
	assert.Equal(t, "llama3.1:8b", got.Model)
	assert.Equal(t, "json", got.Format)
	assert.False(t, got.Stream)
	assert.Contains(t, got.Prompt, "OCR Text:\nSPICY GLAZED MEATBALLS")
	assert.Equal(t, "Bearer k123", auth)
}

func TestOllamaBackend_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "model missing",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"model 'llama9' not found"}`))
			},
			wantErr: "model 'llama9' not found",
		},
		{
			name: "empty response",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"response":""}`))
			},
			wantErr: ErrEmptyResponse.Error(),
		},
		{
			name: "response is not JSON",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"response":"Here is your recipe!"}`))
			},
			wantErr: "parsing model JSON",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			b := &OllamaBackend{URL: ts.URL, Model: "llama9", Client: ts.Client()}
			_, err := b.Extract(context.Background(), "text")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRenderPrompt(t *testing.T) {
	p, err := renderPrompt("1 cup flour")
	require.NoError(t, err)
	assert.Contains(t, p, "1 cup flour")
	assert.Contains(t, p, `{"Meatballs": [...], "Glaze": [...]}`)
	assert.Contains(t, p, "family_notes")
}
