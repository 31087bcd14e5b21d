package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/common"
)

// cleanMarkdownWrapper strips markdown code fences the model sometimes
// wraps JSON in despite instructions.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	return strings.TrimSpace(content)
}

// extractJSONObject trims any prose around the outermost JSON object.
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}

// parseExtraction parses the model's extraction answer, tolerating fences
// and surrounding prose. A malformed answer is a retryable failure: the
// model may produce valid JSON on the next attempt.
func parseExtraction(content string) (*extractionPayload, error) {
	cleaned := extractJSONObject(cleanMarkdownWrapper(content))

	var payload extractionPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("malformed extraction response: %w", err),
			Retryable: true,
		}
	}
	if len(payload.Transactions) == 0 {
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("extraction response carries no transactions"),
			Retryable: true,
		}
	}
	return &payload, nil
}

// mccPayload is the JSON shape of an MCC resolution answer.
type mccPayload struct {
	MCC         string  `json:"mcc"`
	Category    string  `json:"category"`
	SubCategory string  `json:"sub_category"`
	Confidence  float64 `json:"confidence"`
}

// parseMCC parses the model's MCC resolution answer.
func parseMCC(content string) (*mccPayload, error) {
	cleaned := extractJSONObject(cleanMarkdownWrapper(content))

	var payload mccPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("malformed MCC response: %w", err),
			Retryable: true,
		}
	}
	return &payload, nil
}
