// Package model implements feature preprocessing and a small logistic
// regression classifier for the purchase predictor, plus JSON persistence
// of the trained artifact.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/purchaseml/purchase-predictor/pkg/data"
)

// FeatureNames is the fixed feature order consumed by the classifier and
// by the scoring endpoints.
var FeatureNames = []string{"price", "user_rating", "category_encoded", "previously_purchased_encoded"}

// ErrNotFitted is returned when Transform is called before Fit.
var ErrNotFitted = errors.New("preprocessor has not been fitted")

// ErrUnknownCategory is returned when a category was not present in the
// training vocabulary.
var ErrUnknownCategory = errors.New("unknown category")

// Preprocessor maps raw purchase records to the numeric feature vector
// [price, user_rating, category_encoded, previously_purchased_encoded].
// The category encoding is a label encoding over the sorted training
// vocabulary, so fitting is deterministic for a given dataset.
type Preprocessor struct {
	Categories []string `json:"categories"`

	index map[string]int
}

// NewPreprocessor returns an unfitted preprocessor.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{}
}

// Fit learns the category vocabulary from the training records.
func (p *Preprocessor) Fit(records []data.Record) {
	seen := map[string]bool{}
	p.Categories = p.Categories[:0]
	for _, r := range records {
		c := strings.ToLower(r.Category)
		if !seen[c] {
			seen[c] = true
			p.Categories = append(p.Categories, c)
		}
	}
	sort.Strings(p.Categories)
	p.buildIndex()
}

// Transform maps one record to its feature vector. Records with a
// category outside the fitted vocabulary are rejected rather than
// silently encoded.
func (p *Preprocessor) Transform(r data.Record) ([]float64, error) {
	return p.TransformRaw(r.Price, r.UserRating, r.Category, r.PreviouslyPurchased)
}

// TransformRaw is Transform for callers holding raw field values, e.g.
// the scoring server.
func (p *Preprocessor) TransformRaw(price float64, rating int, category, previouslyPurchased string) ([]float64, error) {
	if len(p.Categories) == 0 {
		return nil, ErrNotFitted
	}
	if p.index == nil {
		p.buildIndex()
	}

	idx, ok := p.index[strings.ToLower(category)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	prev := 0.0
	switch strings.ToLower(previouslyPurchased) {
	case "yes", "1", "true":
		prev = 1.0
	case "no", "0", "false", "":
		prev = 0.0
	default:
		return nil, fmt.Errorf("previously_purchased: unrecognized value %q", previouslyPurchased)
	}

	return []float64{price, float64(rating), float64(idx), prev}, nil
}

// TransformAll maps records to a feature matrix and label slice.
func (p *Preprocessor) TransformAll(records []data.Record) ([][]float64, []int, error) {
	features := make([][]float64, 0, len(records))
	labels := make([]int, 0, len(records))
	for i, r := range records {
		x, err := p.Transform(r)
		if err != nil {
			return nil, nil, fmt.Errorf("record %d: %w", i, err)
		}
		features = append(features, x)
		labels = append(labels, r.Label)
	}
	return features, labels, nil
}

func (p *Preprocessor) buildIndex() {
	p.index = make(map[string]int, len(p.Categories))
	for i, c := range p.Categories {
		p.index[c] = i
	}
}
