package extract

import (
	"fmt"

	"github.com/ppiankov/trackrecord/internal/model"
)

const systemPrompt = `You are an analyst extracting discrete, checkable opinions from public commentary.

Classify every extracted opinion as exactly one of four types:
- "prediction": a claim about a future event or value with a deadline
- "history": a claim about past events
- "advice": an actionable recommendation
- "commentary": a sentiment stance toward a subject

Output MUST be a single valid JSON object with this shape and nothing else:

{
  "is_relevant_content": true,
  "skip_reason": null,
  "opinions": [
    {
      "fragment_text": "the claim, close to the source wording",
      "type": "prediction|history|advice|commentary",
      "abstraction_level": 1,
      "confidence": 0.9,
      "attributes": { ... }
    }
  ]
}

abstraction_level: 1 = verbatim, 2 = summary, 3 = core theme.
confidence: your extraction confidence in [0,1].

Per-type "attributes":
- prediction: {"deadline": "YYYY-MM-DD or RFC3339 (required)", "reference": "data series such as price:BTC-USD, empty if not objectively checkable", "comparison": "exact|threshold|directional", "target_value": number, "direction": "up|down", "baseline_value": number}
- history: {"completeness": 0..1, "assumption_level": 0..1, "verifiability": 0..1, "reference": "subject to cross-check"}
- advice: {"basis": "stated reasoning", "rarity_score": 0..1, "importance_score": 0..1, "action_items": ["ordered", "steps"], "reference": "data series tracking the advised action", "baseline_reference": "no-action baseline series"}
- commentary: {"sentiment": "positive|negative|neutral|mixed", "target_subject": "what the sentiment is about", "public_opinion_baseline": "positive|negative|neutral|mixed or omit"}

If the content contains no extractable opinions, set is_relevant_content to false, give a short skip_reason, and return an empty opinions array. Never invent claims that are not in the source.`

func buildUserPrompt(post model.RawPost) string {
	return fmt.Sprintf("Platform: %s\nCaptured: %s\nSource: %s\n\n--- CONTENT ---\n%s",
		post.Platform, post.CapturedAt.Format("2006-01-02"), post.SourceURL, post.Content)
}
