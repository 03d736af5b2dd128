// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/cookbook/pkg/types"
)

// noteKeys pairs the model's snake_case note keys with template labels, in
// template order.
var noteKeys = []struct {
	key   string
	label types.NoteLabel
}{
	{"make_ahead", types.NoteMakeAhead},
	{"substitutions", types.NoteSubstitutions},
	{"storage", types.NoteStorage},
	{"tips", types.NoteTips},
	{"scaling", types.NoteScaling},
	{"family_notes", types.NoteFamilyNotes},
}

// RecipeData is the model's answer, decoded leniently: small models return
// numbers where strings were asked for, strings where lists were asked for,
// and sometimes older key names ("source", "personal_note").
type RecipeData struct {
	Title       string `json:"title"`
	Origin      string `json:"origin"`
	Description string `json:"description"`
	Servings    string `json:"servings"`
	PrepTime    string `json:"prep_time"`
	CookTime    string `json:"cook_time"`
	TotalTime   string `json:"total_time"`

	Ingredients []string `json:"ingredients"`

	// IngredientGroups keeps the order the model wrote the groups in.
	IngredientGroups []types.IngredientGroup `json:"ingredient_groups"`

	Instructions []string     `json:"instructions"`
	Notes        []types.Note `json:"notes"`
	ChefsNote    string       `json:"chefs_note"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *RecipeData) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*d = RecipeData{
		Title:        flexString(raw["title"]),
		Origin:       flexString(raw["origin"]),
		Description:  flexString(raw["description"]),
		Servings:     flexString(raw["servings"]),
		PrepTime:     flexString(raw["prep_time"]),
		CookTime:     flexString(raw["cook_time"]),
		TotalTime:    flexString(raw["total_time"]),
		Ingredients:  flexList(raw["ingredients"]),
		Instructions: flexList(raw["instructions"]),
		ChefsNote:    flexString(raw["chefs_note"]),
	}
	if _, ok := raw["origin"]; !ok {
		d.Origin = flexString(raw["source"])
	}
	if _, ok := raw["chefs_note"]; !ok {
		d.ChefsNote = flexString(raw["personal_note"])
	}
	if d.Servings == "" {
		d.Servings = flexString(raw["serves"])
	}

	groups, err := decodeGroups(raw["ingredient_groups"])
	if err != nil {
		return fmt.Errorf("ingredient_groups: %w", err)
	}
	d.IngredientGroups = groups

	notes, err := decodeNotes(raw["notes"])
	if err != nil {
		return fmt.Errorf("notes: %w", err)
	}
	d.Notes = notes
	return nil
}

// decodeGroups accepts an object of label -> items, read in key order, or
// an array of {"name"/"label", "items"/"ingredients"} objects.
func decodeGroups(raw json.RawMessage) ([]types.IngredientGroup, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '[' {
		var list []struct {
			Name        string          `json:"name"`
			Label       string          `json:"label"`
			Items       json.RawMessage `json:"items"`
			Ingredients json.RawMessage `json:"ingredients"`
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		var out []types.IngredientGroup
		for _, g := range list {
			items := flexList(g.Items)
			if items == nil {
				items = flexList(g.Ingredients)
			}
			out = appendGroup(out, firstNonEmpty(g.Name, g.Label), items)
		}
		return out, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object or array, got %v", tok)
	}

	var out []types.IngredientGroup
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		label, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		out = appendGroup(out, label, flexList(value))
	}
	return out, nil
}

func appendGroup(groups []types.IngredientGroup, label string, items []string) []types.IngredientGroup {
	label = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(label), ":"))
	if len(items) == 0 {
		return groups
	}
	return append(groups, types.IngredientGroup{Label: label, Items: items})
}

// decodeNotes accepts an object keyed by the note names or a bare string,
// which is filed under Tips. Unrecognised keys are dropped.
func decodeNotes(raw json.RawMessage) ([]types.Note, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		if s := flexString(raw); s != "" {
			return []types.Note{{Label: types.NoteTips, Text: s}}, nil
		}
		return nil, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	var out []types.Note
	for _, nk := range noteKeys {
		if text := flexString(obj[nk.key]); text != "" {
			out = append(out, types.Note{Label: nk.label, Text: text})
		}
	}
	return out, nil
}

// flexString reads a JSON string, number or list of strings as trimmed text.
func flexString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return strings.TrimSpace(s)
		}
	case '[':
		return strings.Join(flexList(raw), ", ")
	case 'n', 't', 'f', '{':
		return ""
	default:
		var n json.Number
		if json.Unmarshal(raw, &n) == nil {
			if i, err := n.Int64(); err == nil {
				return strconv.FormatInt(i, 10)
			}
			return n.String()
		}
	}
	return ""
}

// flexList reads a JSON array of scalars, or a string split into lines,
// dropping blank entries.
func flexList(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	var out []string
	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) != nil {
			return nil
		}
		for _, item := range items {
			if s := flexString(item); s != "" {
				out = append(out, s)
			}
		}
	case '"':
		for _, line := range strings.Split(flexString(raw), "\n") {
			if s := strings.TrimSpace(line); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
