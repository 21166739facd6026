// Package regional turns an editor's clean mask and layer prompts into
// what a region-aware generator consumes: one combined prompt with a
// section per layer, and one binary region per layer that has pixels.
//
// Layers are matched to regions purely by identity color, so Extract
// works on any clean mask, including one read back from a save file.
package regional

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Separator joins the sections of a combined prompt.
const Separator = " BREAK "

// EmptyPrompt stands in for a layer without a prompt so that section
// positions still line up with layer positions.
const EmptyPrompt = "_"

// PromptMap holds layer prompts keyed by 1-based layer position.
type PromptMap map[string]string

// Parse decodes a JSON object of prompts. An empty string is an empty
// map.
func Parse(s string) (PromptMap, error) {
	m := PromptMap{}
	if strings.TrimSpace(s) == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("regional: parse prompts: %w", err)
	}
	return m, nil
}

// Get returns the prompt of the layer at 1-based position n.
func (m PromptMap) Get(n int) string {
	return m[strconv.Itoa(n)]
}

// Normalize returns a copy with every prompt in Unicode NFC form and
// surrounding whitespace removed.
func (m PromptMap) Normalize() PromptMap {
	out := make(PromptMap, len(m))
	for k, v := range m {
		out[k] = NormalizeText(v)
	}
	return out
}

// NormalizeText applies the prompt normalization to a single string.
func NormalizeText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// String encodes the map as JSON.
func (m PromptMap) String() string {
	if m == nil {
		return "{}"
	}
	b, err := json.Marshal(map[string]string(m))
	if err != nil {
		return "{}"
	}
	return string(b)
}

// LayerCount is the number of layers a prompt map describes: its size
// when it has entries, fallback otherwise.
func LayerCount(prompts PromptMap, fallback int) int {
	if len(prompts) > 0 {
		return len(prompts)
	}
	return max(fallback, 0)
}

// Combine builds the combined prompt: the base prompt followed by one
// section per layer, EmptyPrompt for layers without one. Sections are
// joined with Separator; a lone base prompt is returned as is.
func Combine(base string, prompts PromptMap, fallback int) string {
	n := LayerCount(prompts, fallback)
	parts := make([]string, 0, n+1)
	parts = append(parts, base)
	for i := 1; i <= n; i++ {
		p := prompts.Get(i)
		if p == "" {
			p = EmptyPrompt
		}
		parts = append(parts, p)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts, Separator)
}
