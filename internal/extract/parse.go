package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/trackrecord/internal/model"
)

type extractionPayload struct {
	IsRelevantContent bool               `json:"is_relevant_content"`
	SkipReason        string             `json:"skip_reason"`
	Opinions          []candidatePayload `json:"opinions"`
}

type candidatePayload struct {
	FragmentText     string         `json:"fragment_text"`
	Type             string         `json:"type"`
	AbstractionLevel int            `json:"abstraction_level"`
	Confidence       float64        `json:"confidence"`
	Attributes       map[string]any `json:"attributes"`
}

// Parse decodes an extraction response into candidates. The model
// sometimes wraps JSON in markdown fences or leading prose; everything
// outside the outermost braces is discarded. Unparseable responses fail
// with ErrExtractionMalformed.
func Parse(raw string) (*Result, error) {
	jsonText := extractJSON(raw)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON object in response: %w", model.ErrExtractionMalformed)
	}

	dec := json.NewDecoder(strings.NewReader(jsonText))
	dec.UseNumber() // attribute numbers stay lossless for the validator

	var payload extractionPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode extraction response: %v: %w", err, model.ErrExtractionMalformed)
	}

	result := &Result{
		Relevant:   payload.IsRelevantContent,
		SkipReason: payload.SkipReason,
	}
	for _, c := range payload.Opinions {
		result.Candidates = append(result.Candidates, model.CandidateOpinion{
			FragmentText:       c.FragmentText,
			ProposedType:       c.Type,
			AbstractionLevel:   c.AbstractionLevel,
			ProposedAttributes: c.Attributes,
			Confidence:         c.Confidence,
		})
	}
	return result, nil
}

// extractJSON returns the substring spanning the outermost JSON object,
// or "" when no braces are present.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
