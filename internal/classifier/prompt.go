package classifier

import (
	"fmt"
	"strings"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

const extractionSystemPrompt = `You are a financial statement analyst. Extract every discrete transaction from the statement text you are given. Respond only with JSON in the exact shape requested; no prose, no markdown.`

// buildExtractionPrompt renders the cleaned statement text and hints into
// the extraction request.
func buildExtractionPrompt(text string, hints service.ExtractionHints) string {
	var b strings.Builder

	b.WriteString("Extract all transactions from the statement below.\n\n")
	b.WriteString("Respond with JSON:\n")
	b.WriteString(`{
  "transactions": [
    {"date": "YYYY-MM-DD", "description": "raw line text", "merchant": "normalized merchant", "type": "purchase|refund|fee|interest|payment", "amount": 0.0, "confidence": 0.0}
  ],
  "confidence": 0.0,
  "warnings": []
}`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- amount is signed: refunds and payments negative, charges positive\n")
	b.WriteString("- confidence is your [0,1] certainty per transaction and overall\n")
	b.WriteString("- list anything ambiguous in warnings instead of guessing silently\n")

	if hints.ExpectedIssuer != "" {
		fmt.Fprintf(&b, "- the statement issuer is expected to be %s\n", hints.ExpectedIssuer)
	}
	if hints.ExpectedTransactionCount > 0 {
		fmt.Fprintf(&b, "- roughly %d transactions are expected\n", hints.ExpectedTransactionCount)
	}

	b.WriteString("\nStatement text:\n---\n")
	b.WriteString(text)
	b.WriteString("\n---\n")
	return b.String()
}

const mccSystemPrompt = `You classify merchants into ISO 18245 merchant category codes. Respond only with JSON; no prose, no markdown.`

// buildMCCPrompt asks the model to resolve one merchant to an MCC.
func buildMCCPrompt(merchant string) string {
	return fmt.Sprintf(`Classify the merchant %q into a 4-digit MCC code.

Respond with JSON:
{"mcc": "0000", "category": "spending category", "sub_category": "finer category or empty", "confidence": 0.0}

Use confidence for your [0,1] certainty. If the merchant is unrecognizable, use confidence 0.`, merchant)
}
