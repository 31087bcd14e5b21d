package extraction

import (
	"fmt"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/common"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

// plausibility thresholds for statement-shaped content. The guard is a
// cheap gate in front of the expensive classification call.
const (
	minNumericSignals = 5
	minDateSignals    = 2
)

// checkPlausibility rejects documents that cannot be financial statements.
// Failures here are permanent: retrying the same document cannot help.
func checkPlausibility(doc *service.ParsedDocument, minTextLength int) error {
	if len(doc.Text) < minTextLength {
		return fmt.Errorf("%w: document too short (%d characters)", common.ErrUnsuitableDocument, len(doc.Text))
	}
	if doc.Stats.NumericCount < minNumericSignals {
		return fmt.Errorf("%w: too few numeric values to be a statement", common.ErrUnsuitableDocument)
	}
	if doc.Stats.DateCount < minDateSignals {
		return fmt.Errorf("%w: no transaction dates found", common.ErrUnsuitableDocument)
	}
	if doc.Stats.CurrencyCount == 0 && doc.Stats.TableDensity == 0 {
		return fmt.Errorf("%w: no currency amounts or tabular rows found", common.ErrUnsuitableDocument)
	}
	return nil
}
