package mcc

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

// Discoverer is the model-backed fallback for merchants the built-in
// table cannot resolve.
type Discoverer interface {
	ResolveMCC(ctx context.Context, merchant string) (code, category, subCategory string, confidence float64, err error)
}

// Classifier resolves merchants through the keyword table first and falls
// back to model discovery for the remainder.
type Classifier struct {
	discoverer    Discoverer
	minConfidence float64
}

// NewClassifier creates an MCC classifier. discoverer may be nil, in
// which case unresolved merchants stay unknown.
func NewClassifier(discoverer Discoverer, minConfidence float64) *Classifier {
	return &Classifier{
		discoverer:    discoverer,
		minConfidence: minConfidence,
	}
}

// Resolve maps a normalized merchant name to an MCC resolution. Table
// hits are `known`; model answers outside the table are `discovered`;
// everything else is `unknown`.
func (c *Classifier) Resolve(ctx context.Context, merchant string) (*service.MCCResolution, error) {
	needle := strings.ToLower(strings.TrimSpace(merchant))
	if needle == "" {
		return &service.MCCResolution{Status: model.MCCUnknown}, nil
	}

	for _, fragment := range keywordOrder {
		if strings.Contains(needle, fragment) {
			code := keywordTable[fragment]
			e := codeTable[code]
			return &service.MCCResolution{
				MCCCode:         code,
				CategoryName:    e.Category,
				SubCategoryName: e.SubCategory,
				Status:          model.MCCKnown,
				Confidence:      1.0,
			}, nil
		}
	}

	if c.discoverer == nil {
		return &service.MCCResolution{Status: model.MCCUnknown}, nil
	}

	code, category, subCategory, confidence, err := c.discoverer.ResolveMCC(ctx, merchant)
	if err != nil {
		// Discovery is best-effort; an unreachable model leaves the
		// merchant unknown rather than failing the pipeline stage.
		slog.Warn("MCC discovery failed",
			"merchant", merchant,
			"error", err)
		return &service.MCCResolution{Status: model.MCCUnknown}, nil
	}

	if code == "" || confidence < c.minConfidence {
		return &service.MCCResolution{Status: model.MCCUnknown}, nil
	}

	if e, ok := lookup(code); ok {
		return &service.MCCResolution{
			MCCCode:         code,
			CategoryName:    e.Category,
			SubCategoryName: e.SubCategory,
			Status:          model.MCCKnown,
			Confidence:      confidence,
		}, nil
	}

	if category == "" {
		return &service.MCCResolution{Status: model.MCCUnknown}, nil
	}

	slog.Info("Discovered new MCC",
		"merchant", merchant,
		"mcc", code,
		"category", category,
		"confidence", confidence)
	return &service.MCCResolution{
		MCCCode:         code,
		CategoryName:    category,
		SubCategoryName: subCategory,
		Status:          model.MCCDiscovered,
		Confidence:      confidence,
	}, nil
}
