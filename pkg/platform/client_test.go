package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purchaseml/purchase-predictor/pkg/deploy"
)

func TestRESTClientCreateOrUpdate(t *testing.T) {
	var received deploy.ResourceSpec
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/endpoints/ep-1", r.URL.Path)
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(map[string]string{"operation_id": "op-42"})
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, WithAPIKey("sekrit"))
	spec := ManagedEndpointSpec("purchase-predictor:3", "/srv/code")
	spec.Names = deploy.Names{Endpoint: "ep-1", Deployment: "dep-1"}

	handle, err := c.CreateOrUpdate(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, "op-42", handle)
	assert.Equal(t, "purchase-predictor:3", received.ModelReference)
	assert.Equal(t, "dep-1", received.Names.Deployment)
}

func TestRESTClientCreateOrUpdateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "endpoint name is taken"})
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL)
	_, err := c.CreateOrUpdate(context.Background(), deploy.ResourceSpec{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint name is taken")
	assert.Contains(t, err.Error(), "409")
}

func TestRESTClientGetState(t *testing.T) {
	responses := map[string]map[string]string{
		"op-running": {"state": "running"},
		"op-done":    {"state": "succeeded"},
		"op-failed":  {"state": "failed", "diagnostic": "image pull failed"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/api/v1/operations/"):]
		json.NewEncoder(w).Encode(responses[id])
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL)

	state, _, err := c.GetState(context.Background(), "op-running")
	require.NoError(t, err)
	assert.Equal(t, deploy.StateRunning, state)

	state, _, err = c.GetState(context.Background(), "op-done")
	require.NoError(t, err)
	assert.Equal(t, deploy.StateSucceeded, state)

	state, diagnostic, err := c.GetState(context.Background(), "op-failed")
	require.NoError(t, err)
	assert.Equal(t, deploy.StateFailed, state)
	assert.Equal(t, "image pull failed", diagnostic)
}

func TestRESTClientGetStateRejectsUnknownState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"state": "limbo"})
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL)
	_, _, err := c.GetState(context.Background(), "op-1")
	assert.ErrorContains(t, err, "limbo")
}

func TestRESTClientDeleteTreatsNotFoundAsSuccess(t *testing.T) {
	var deletes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deletes++
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "dep-1", r.URL.Query().Get("deployment"))
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL)
	err := c.Delete(context.Background(), deploy.Names{Endpoint: "ep-1", Deployment: "dep-1"})
	assert.NoError(t, err)
	assert.Equal(t, 1, deletes)
}

func TestRESTClientDeletePropagatesOtherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL)
	err := c.Delete(context.Background(), deploy.Names{Endpoint: "ep-1"})
	assert.Error(t, err)
}

func TestSpecPresets(t *testing.T) {
	managed := ManagedEndpointSpec("m:1", "/code")
	container := ContainerInstanceSpec("m:1", "/code")

	assert.Equal(t, "Standard_DS2_v2", managed.Compute.InstanceType)
	assert.Equal(t, "Standard_F2s_v2", container.Compute.InstanceType)
	assert.NotEqual(t, managed.Environment.Image, container.Environment.Image)
	assert.Equal(t, managed.ModelReference, container.ModelReference)
	assert.Equal(t, 1, managed.Compute.InstanceCount)
}
