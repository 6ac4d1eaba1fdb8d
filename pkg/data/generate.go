// Package data generates and persists the synthetic purchase dataset used
// to train and evaluate the purchase predictor.
package data

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

// Categories is the fixed product category vocabulary.
var Categories = []string{"electronics", "books", "clothes", "home", "sports"}

// priceRanges gives per-category uniform price bounds.
var priceRanges = map[string][2]float64{
	"electronics": {10.0, 500.0},
	"books":       {5.0, 50.0},
	"clothes":     {15.0, 200.0},
	"home":        {8.0, 300.0},
	"sports":      {12.0, 400.0},
}

// Record is one labeled sample: did the user purchase the product.
type Record struct {
	Price               float64
	UserRating          int
	Category            string
	PreviouslyPurchased string // "yes" or "no"
	Label               int    // 1 = purchased
}

// Generate produces n synthetic records. The label follows a noisy
// propensity score: higher ratings, lower prices, and a previous purchase
// all raise the purchase probability.
func Generate(n int, seed int64) []Record {
	rng := rand.New(rand.NewSource(seed))
	records := make([]Record, 0, n)

	for i := 0; i < n; i++ {
		category := Categories[rng.Intn(len(Categories))]
		bounds := priceRanges[category]
		price := bounds[0] + rng.Float64()*(bounds[1]-bounds[0])
		price = math.Round(price*100) / 100

		rating := 1 + rng.Intn(5)

		prev := "no"
		if rng.Float64() < 0.3 {
			prev = "yes"
		}

		prob := 0.1
		if rating >= 4 {
			prob += 0.4
		}
		switch {
		case price < 50:
			prob += 0.3
		case price < 100:
			prob += 0.1
		}
		if prev == "yes" {
			prob += 0.2
		}
		prob += rng.NormFloat64() * 0.1
		prob = math.Min(0.95, math.Max(0.05, prob))

		label := 0
		if rng.Float64() < prob {
			label = 1
		}

		records = append(records, Record{
			Price:               price,
			UserRating:          rating,
			Category:            category,
			PreviouslyPurchased: prev,
			Label:               label,
		})
	}
	return records
}

// Split partitions records into train and test sets, stratified by label
// so both sets keep the overall positive rate. testFraction is clamped to
// (0, 1).
func Split(records []Record, testFraction float64, seed int64) (train, test []Record) {
	if testFraction <= 0 {
		testFraction = 0.2
	}
	if testFraction >= 1 {
		testFraction = 0.2
	}

	rng := rand.New(rand.NewSource(seed))
	byLabel := map[int][]Record{}
	for _, r := range records {
		byLabel[r.Label] = append(byLabel[r.Label], r)
	}

	for _, label := range []int{0, 1} {
		group := byLabel[label]
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		cut := int(float64(len(group)) * testFraction)
		test = append(test, group[:cut]...)
		train = append(train, group[cut:]...)
	}

	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test
}

var csvHeader = []string{"price", "user_rating", "category", "previously_purchased", "label"}

// WriteCSV writes records to path, creating parent directories as needed.
func WriteCSV(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.FormatFloat(r.Price, 'f', 2, 64),
			strconv.Itoa(r.UserRating),
			r.Category,
			r.PreviouslyPurchased,
			strconv.Itoa(r.Label),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

// ReadCSV loads records previously written by WriteCSV.
func ReadCSV(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(csvHeader) {
			return nil, fmt.Errorf("%s: row %d has %d fields, want %d", path, i+2, len(row), len(csvHeader))
		}
		price, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d price: %w", path, i+2, err)
		}
		rating, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("%s: row %d rating: %w", path, i+2, err)
		}
		label, err := strconv.Atoi(row[4])
		if err != nil {
			return nil, fmt.Errorf("%s: row %d label: %w", path, i+2, err)
		}
		records = append(records, Record{
			Price:               price,
			UserRating:          rating,
			Category:            row[2],
			PreviouslyPurchased: row[3],
			Label:               label,
		})
	}
	return records, nil
}
