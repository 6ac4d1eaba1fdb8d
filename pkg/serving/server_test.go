package serving

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purchaseml/purchase-predictor/pkg/data"
	"github.com/purchaseml/purchase-predictor/pkg/model"
)

func trainedModel(t *testing.T) *model.Model {
	t.Helper()
	records := data.Generate(300, 7)
	pre := model.NewPreprocessor()
	pre.Fit(records)
	features, labels, err := pre.TransformAll(records)
	require.NoError(t, err)
	clf, err := model.Train(features, labels, model.TrainConfig{LearningRate: 0.1, Epochs: 200})
	require.NoError(t, err)
	return &model.Model{
		Type:         model.TypeLogisticRegression,
		Classifier:   clf,
		Preprocessor: pre,
	}
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := NewServer(trainedModel(t), WithModelVersion("purchase-predictor:3"))
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func postPredict(t *testing.T, srv *httptest.Server, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/predict", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, true, health["model_loaded"])
}

func TestPredictNamedInstances(t *testing.T) {
	srv := testServer(t)

	resp := postPredict(t, srv, map[string]any{
		"instances": []map[string]any{
			{"price": 25.99, "user_rating": 5, "category": "books", "previously_purchased": "yes"},
			{"price": 480.00, "user_rating": 1, "category": "electronics", "previously_purchased": "no"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out predictResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 2, out.InputCount)
	require.Len(t, out.Predictions, 2)
	require.Len(t, out.Probabilities, 2)
	require.Len(t, out.Confidence, 2)
	assert.Equal(t, "purchase-predictor:3", out.ModelVersion)

	// Cheap, loved, repeat purchase should score higher than expensive,
	// hated, first-time.
	assert.Greater(t, out.Probabilities[0], out.Probabilities[1])
}

func TestPredictRawVectors(t *testing.T) {
	srv := testServer(t)

	resp := postPredict(t, srv, map[string]any{
		"data": [][]float64{{25.99, 4, 1, 1}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out predictResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out.InputCount)
	assert.Contains(t, []int{0, 1}, out.Predictions[0])
}

func TestPredictRejectsEmptyPayload(t *testing.T) {
	srv := testServer(t)

	resp := postPredict(t, srv, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPredictRejectsMalformedJSON(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Post(srv.URL+"/predict", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPredictRejectsWrongVectorWidth(t *testing.T) {
	srv := testServer(t)

	resp := postPredict(t, srv, map[string]any{
		"data": [][]float64{{1.0, 2.0}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out["error"], "want 4")
}

func TestPredictRejectsUnknownCategory(t *testing.T) {
	srv := testServer(t)

	resp := postPredict(t, srv, map[string]any{
		"instances": []map[string]any{
			{"price": 10, "user_rating": 3, "category": "gadgets", "previously_purchased": "no"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPredictRejectsMixedForms(t *testing.T) {
	srv := testServer(t)

	resp := postPredict(t, srv, map[string]any{
		"data":      [][]float64{{25.99, 4, 1, 1}},
		"instances": []map[string]any{{"price": 10, "user_rating": 3, "category": "books", "previously_purchased": "no"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConfidenceLabel(t *testing.T) {
	assert.Equal(t, "high", confidenceLabel(0.95))
	assert.Equal(t, "high", confidenceLabel(0.05))
	assert.Equal(t, "medium", confidenceLabel(0.75))
	assert.Equal(t, "low", confidenceLabel(0.55))
}
