// File: internal/oracle/parser.go
package oracle

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
	"github.com/xkilldash9x/droidpilot/internal/action"
)

// ErrMalformedResponse marks oracle output that could not be turned into a
// Decision. The loop treats it like any other oracle failure.
var ErrMalformedResponse = errors.New("malformed oracle response")

// jsonBlockRegex extracts a JSON object wrapped in a markdown fence.
var jsonBlockRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*(\\{.*\\})\\s*\x60\x60\x60")

// ParseJSONResponse decodes an LLM reply into T, tolerating markdown fences
// and conversational text around a single JSON object.
func ParseJSONResponse[T any](response string) (*T, error) {
	payload := extractJSONObject(response)
	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}
	var out T
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, fmt.Errorf("%w: %v (extracted: %s)", ErrMalformedResponse, err, truncate(payload, 300))
	}
	return &out, nil
}

func extractJSONObject(response string) string {
	response = strings.TrimSpace(response)
	if m := jsonBlockRegex.FindStringSubmatch(response); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	first := strings.Index(response, "{")
	last := strings.LastIndex(response, "}")
	if first == -1 || last <= first {
		return ""
	}
	return response[first : last+1]
}

// wireDecision is the JSON shape the prompt asks for.
type wireDecision struct {
	Reflection      string          `json:"reflection"`
	Status          string          `json:"status"`
	Thought         string          `json:"thought"`
	MissionComplete bool            `json:"mission_complete"`
	Action          action.Proposal `json:"action"`
}

const statusComplete = "COMPLETE"

// ParseDecision turns raw oracle text into a Decision. A reply that is not
// complete and names no action is malformed.
func ParseDecision(raw string) (*Decision, error) {
	w, err := ParseJSONResponse[wireDecision](raw)
	if err != nil {
		return nil, err
	}
	d := &Decision{
		Proposal:        w.Action,
		Reasoning:       strings.TrimSpace(w.Thought),
		Reflection:      strings.TrimSpace(w.Reflection),
		MissionComplete: w.MissionComplete || strings.EqualFold(strings.TrimSpace(w.Status), statusComplete),
		Raw:             raw,
	}
	if !d.MissionComplete && strings.TrimSpace(d.Proposal.Type) == "" {
		return nil, fmt.Errorf("%w: missing action type", ErrMalformedResponse)
	}
	return d, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
