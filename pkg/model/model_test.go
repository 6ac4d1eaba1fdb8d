package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purchaseml/purchase-predictor/pkg/data"
)

func fittedPreprocessor(t *testing.T, records []data.Record) *Preprocessor {
	t.Helper()
	p := NewPreprocessor()
	p.Fit(records)
	return p
}

func TestPreprocessorFitSortsVocabulary(t *testing.T) {
	p := fittedPreprocessor(t, []data.Record{
		{Category: "sports"}, {Category: "books"}, {Category: "electronics"}, {Category: "books"},
	})
	assert.Equal(t, []string{"books", "electronics", "sports"}, p.Categories)
}

func TestPreprocessorTransform(t *testing.T) {
	p := fittedPreprocessor(t, []data.Record{
		{Category: "books"}, {Category: "electronics"},
	})

	x, err := p.Transform(data.Record{Price: 25.99, UserRating: 4, Category: "electronics", PreviouslyPurchased: "yes"})
	require.NoError(t, err)
	assert.Equal(t, []float64{25.99, 4, 1, 1}, x)

	x, err = p.TransformRaw(150.0, 2, "books", "no")
	require.NoError(t, err)
	assert.Equal(t, []float64{150.0, 2, 0, 0}, x)
}

func TestPreprocessorRejectsUnknownCategory(t *testing.T) {
	p := fittedPreprocessor(t, []data.Record{{Category: "books"}})

	_, err := p.TransformRaw(10, 3, "gadgets", "no")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestPreprocessorUnfitted(t *testing.T) {
	_, err := NewPreprocessor().TransformRaw(10, 3, "books", "no")
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestTrainLearnsPropensitySignal(t *testing.T) {
	records := data.Generate(500, 42)
	train, test := data.Split(records, 0.2, 42)

	p := fittedPreprocessor(t, records)
	trainX, trainY, err := p.TransformAll(train)
	require.NoError(t, err)
	testX, testY, err := p.TransformAll(test)
	require.NoError(t, err)

	clf, err := Train(trainX, trainY, DefaultTrainConfig())
	require.NoError(t, err)

	metrics, err := clf.Evaluate(testX, testY)
	require.NoError(t, err)
	// The synthetic labels carry a strong signal; the model must beat a
	// majority-class guess comfortably.
	assert.Greater(t, metrics.Accuracy, 0.6)

	// Cheap product, high rating, returning customer: high propensity.
	likely, err := p.TransformRaw(25.99, 4, "books", "yes")
	require.NoError(t, err)
	pLikely, err := clf.PredictProba(likely)
	require.NoError(t, err)

	// Expensive product, poor rating, new customer: low propensity.
	unlikely, err := p.TransformRaw(450.0, 2, "electronics", "no")
	require.NoError(t, err)
	pUnlikely, err := clf.PredictProba(unlikely)
	require.NoError(t, err)

	assert.Greater(t, pLikely, pUnlikely)
}

func TestTrainInputValidation(t *testing.T) {
	_, err := Train(nil, nil, DefaultTrainConfig())
	assert.Error(t, err)

	_, err = Train([][]float64{{1, 2}}, []int{0, 1}, DefaultTrainConfig())
	assert.Error(t, err)

	_, err = Train([][]float64{{1, 2}, {1}}, []int{0, 1}, DefaultTrainConfig())
	assert.Error(t, err)
}

func TestModelSaveLoadRoundTrip(t *testing.T) {
	records := data.Generate(200, 42)
	p := fittedPreprocessor(t, records)
	x, y, err := p.TransformAll(records)
	require.NoError(t, err)
	clf, err := Train(x, y, DefaultTrainConfig())
	require.NoError(t, err)

	m := &Model{Type: TypeLogisticRegression, Classifier: clf, Preprocessor: p}
	path := filepath.Join(t.TempDir(), "models", "model.json")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.Type, loaded.Type)
	assert.Equal(t, clf.Weights, loaded.Classifier.Weights)
	assert.Equal(t, p.Categories, loaded.Preprocessor.Categories)

	// The loaded model scores identically.
	vec, err := loaded.Preprocessor.TransformRaw(25.99, 4, "books", "yes")
	require.NoError(t, err)
	want, err := clf.PredictProba(vec)
	require.NoError(t, err)
	got, err := loaded.Classifier.PredictProba(vec)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
}
