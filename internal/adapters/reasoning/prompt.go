package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/okian/trustgate/internal/domain/model"
)

const rubric = `You review submissions for a community knowledge base of events, news and resources.

Judge the submission on:
- relevance: how useful it is to the community (low, medium, high)
- quality: completeness, clarity and credibility of the information (low, medium, high)
- values alignment: liberationScore from 0 to 1, how well it serves collective wellbeing,
  mutual aid and equitable access
- red flags: list any that apply, using these names: spam, scam, hate-speech, harassment,
  misinformation, commercial-promotion, personal-data, duplicate-suspected, off-topic

Then recommend one of: auto-approve (clearly relevant, high quality, no red flags),
review (a human should look), reject (clearly unsuitable).

Answer with a single JSON object and nothing else:
{"confidence": <0..1>, "relevance": "low|medium|high", "quality": "low|medium|high",
 "liberationScore": <0..1>, "reasoning": "<one or two sentences>",
 "recommendation": "auto-approve|review|reject", "flags": ["<red flag>", ...]}`

type promptItem struct {
	Type           model.ItemType `json:"type"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	OccurrenceDate string         `json:"occurrenceDate,omitempty"`
	Location       string         `json:"location,omitempty"`
	SourceURL      string         `json:"sourceUrl,omitempty"`
	OrganizerName  string         `json:"organizerName,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	Price          *float64       `json:"price,omitempty"`
	SubmittedBy    string         `json:"submittedBy"`
}

// buildPrompt renders item as the user message.
func buildPrompt(item model.CandidateItem) (string, error) {
	p := promptItem{
		Type:          item.Type,
		Title:         item.Title,
		Description:   item.Description,
		Location:      item.Location,
		SourceURL:     item.SourceURL,
		OrganizerName: item.OrganizerName,
		Tags:          item.Tags,
		Price:         item.Price,
		SubmittedBy:   item.SubmittedBy,
	}
	if item.OccurrenceDate != nil {
		p.OccurrenceDate = item.OccurrenceDate.UTC().Format(time.RFC3339)
	}
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: encoding item: %w", ErrReasoning, err)
	}
	var sb strings.Builder
	sb.WriteString("Submission:\n")
	sb.Write(raw)
	return sb.String(), nil
}
