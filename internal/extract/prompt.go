// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"

	"github.com/pdiddy/cookbook/internal/httputil"
	"github.com/pdiddy/cookbook/pkg/types"
)

// extractionPromptTmpl asks the model to turn noisy OCR text into the JSON
// object RecipeData decodes.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`You are extracting recipe information from OCR text. The OCR may have errors, so use your best judgment to correct obvious mistakes while staying faithful to the source.

OCR Text:
{{.Text}}

Extract the recipe information and return ONLY a valid JSON object with these exact fields:

- title (string): The recipe name/title - NOT the source or contest name. Look for the actual dish name (e.g., "Spicy Glazed Meatballs" not "Oatmeal Contest Winner")
- origin (string): Source/origin like "Second-prize winner in The 2005 Old Farmer's Almanac Reader Recipe Contest for oatmeal" (if mentioned, otherwise "Unknown")
- description (string): Brief description of what makes this dish special (empty string "" if not mentioned - do NOT invent one)
- servings (string): Number of servings (e.g., "4 to 6", or "Unknown" if not specified)
- prep_time (string): Preparation time (e.g., "15 min", or "Unknown" if not specified)
- cook_time (string): Cooking time (e.g., "30 min", or "Unknown" if not specified - look for baking/cooking times in instructions)
- total_time (string): Total time (calculate if you have prep + cook, otherwise "Unknown")
- ingredients (array of strings): List of ingredients with quantities - correct OCR errors (e.g., "7% cup" should be "⅓ cup" or "1/3 cup")
- ingredient_groups (object): If ingredients are clearly grouped with headers like "For the meatballs:", "For the glaze:", use this format: {"Meatballs": [...], "Glaze": [...]}. Otherwise leave empty.
- instructions (array of strings): Step-by-step cooking instructions as separate items
- notes (object): Only include keys that have actual content from the recipe:
  * make_ahead (string): How to prep in advance (only if mentioned)
  * substitutions (string): Alternative ingredients (only if mentioned)
  * storage (string): Storage instructions (only if mentioned)
  * tips (string): Helpful tricks (only if mentioned)
  * scaling (string): Doubling/halving notes (only if mentioned)
  * family_notes (string): Personal memories (only if mentioned)
- chefs_note (string): A personal tip or special instruction (empty string "" if none)

Important rules:
- The title should be the DISH NAME, not the source/contest name
- Only include information explicitly stated - no invention
- Correct obvious OCR errors in measurements (7% → ⅓, l/2 → ½, etc.)
- For ingredient_groups, look for section headers like "Meatballs" or "Glaze" or "For the..."
- Return empty string "" not placeholders like "[Brief description]"
- Return empty object {} for notes if there are no notes
- Return ONLY the JSON object, no other text
- Ensure valid JSON formatting
`))

// ErrEmptyResponse is returned when the model answers with no JSON at all.
var ErrEmptyResponse = errors.New("model returned an empty response")

// OllamaBackend calls a local Ollama server's generate endpoint in JSON mode.
type OllamaBackend struct {
	URL       string
	Model     string
	APIKey    string
	UserAgent string
	Client    *http.Client
}

// NewOllama returns a backend configured from cfg. The HTTP timeout covers
// one generation; model loading on a cold server can take most of it.
func NewOllama(cfg types.ExtractionConfig) *OllamaBackend {
	return &OllamaBackend{
		URL:       strings.TrimRight(cfg.URL, "/"),
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		UserAgent: cfg.UserAgent,
		Client:    &http.Client{Timeout: cfg.Timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Extract sends the OCR text to the model and decodes its JSON answer.
func (o *OllamaBackend) Extract(ctx context.Context, ocrText string) (RecipeData, error) {
	prompt, err := renderPrompt(ocrText)
	if err != nil {
		return RecipeData{}, fmt.Errorf("rendering prompt: %w", err)
	}

	body, err := json.Marshal(generateRequest{Model: o.Model, Prompt: prompt, Format: "json"})
	if err != nil {
		return RecipeData{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return RecipeData{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.UserAgent != "" {
		req.Header.Set("User-Agent", o.UserAgent)
	}
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return RecipeData{}, fmt.Errorf("calling Ollama at %s (is `ollama serve` running?): %w", o.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var gr generateResponse
		if json.Unmarshal(data, &gr) == nil && gr.Error != "" {
			return RecipeData{}, fmt.Errorf("Ollama returned %d: %s", resp.StatusCode, gr.Error)
		}
		return RecipeData{}, fmt.Errorf("Ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return RecipeData{}, fmt.Errorf("decoding Ollama response: %w", err)
	}
	if strings.TrimSpace(gr.Response) == "" {
		return RecipeData{}, ErrEmptyResponse
	}

	var data RecipeData
	if err := json.Unmarshal([]byte(gr.Response), &data); err != nil {
		return RecipeData{}, fmt.Errorf("parsing model JSON: %w (response was %.200q)", err, gr.Response)
	}
	return data, nil
}

// renderPrompt executes the extraction prompt template with the OCR text.
func renderPrompt(ocrText string) (string, error) {
	var buf bytes.Buffer
	if err := extractionPromptTmpl.Execute(&buf, struct{ Text string }{Text: ocrText}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
