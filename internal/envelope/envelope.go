// ABOUTME: Canonical result envelope returned to clients for every capability call.
// ABOUTME: Normalizes heterogeneous handler results into content blocks with an authoritative error flag.

package envelope

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Block is a single typed content block in an envelope.
// Only "text" blocks are currently produced.
type Block struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Text returns a text content block.
func Text(s string) Block {
	return Block{Type: "text", Text: s}
}

// Envelope is the sole result shape exposed to the client,
// regardless of what a handler internally returned.
type Envelope struct {
	Content []Block `json:"content"`
	IsError bool    `json:"isError,omitempty"`
}

// Result is what capability handlers return on the success path.
// Handlers may either pre-form content blocks or hand back a structured
// payload in Data; exactly one of the two should be set.
type Result struct {
	Success bool
	Content []Block
	Data    any
}

// failureIndicators are substrings that mark a text block as a failure even
// when the handler's own success flag says otherwise. Handlers are
// inconsistent about reporting failure; this is the single point where the
// error state becomes authoritative for the client. Known limitation: a
// legitimate success message like "0 errors found" trips this heuristic.
var failureIndicators = []string{"error", "failed"}

// Normalize converts a handler result into the canonical envelope.
//
// Pre-formed content blocks are passed through after scanning each text
// block for failure-indicating substrings; a match sets IsError regardless
// of the handler's success flag. Structured payloads are serialized to an
// indented JSON text block without sniffing, since generated JSON routinely
// contains field names that would trip the heuristic.
func Normalize(res *Result) Envelope {
	if res == nil {
		return Envelope{
			Content: []Block{Text("capability returned no result")},
			IsError: true,
		}
	}

	if len(res.Content) > 0 {
		return Envelope{
			Content: res.Content,
			IsError: !res.Success || sniffFailure(res.Content),
		}
	}

	var text string
	switch v := res.Data.(type) {
	case nil:
		text = ""
	case string:
		text = v
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return Envelope{
				Content: []Block{Text(fmt.Sprintf("unserializable result: %v", err))},
				IsError: true,
			}
		}
		text = string(data)
	}

	return Envelope{
		Content: []Block{Text(text)},
		IsError: !res.Success,
	}
}

// FromFailure builds an error envelope from a raw error message plus
// optional diagnostic text. The raw message is always surfaced; the
// diagnostics never replace it.
func FromFailure(message string, diagnostics string) Envelope {
	content := []Block{Text(message)}
	if diagnostics != "" {
		content = append(content, Text(diagnostics))
	}
	return Envelope{Content: content, IsError: true}
}

// sniffFailure reports whether any text block contains a failure indicator.
func sniffFailure(blocks []Block) bool {
	for _, b := range blocks {
		if b.Type != "text" {
			continue
		}
		lower := strings.ToLower(b.Text)
		for _, indicator := range failureIndicators {
			if strings.Contains(lower, indicator) {
				return true
			}
		}
	}
	return false
}
