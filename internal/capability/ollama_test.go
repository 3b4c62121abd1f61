package capability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaCorrector_Correct(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])
		assert.Contains(t, req["prompt"], "teh quick brown")

		json.NewEncoder(w).Encode(map[string]string{"response": "the quick brown fox"})
	}))
	defer srv.Close()

	c := NewOllamaCorrector(srv.URL, "test-model", 5*time.Second)
	got, err := c.Correct(context.Background(), "teh quick brown fox jumps")
	require.NoError(t, err)
	assert.Equal(t, "the quick brown fox", got)
	assert.Equal(t, 1, calls)
}

func TestOllamaCorrector_ShortTextSkipsModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("short text must not reach the model")
	}))
	defer srv.Close()

	c := NewOllamaCorrector(srv.URL, "test-model", 5*time.Second)
	got, err := c.Correct(context.Background(), "tiny")
	require.NoError(t, err)
	assert.Equal(t, "tiny", got)
}

func TestOllamaCorrector_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOllamaCorrector(srv.URL, "test-model", 5*time.Second)
	_, err := c.Correct(context.Background(), "some text long enough to correct")
	assert.Error(t, err)
}

func TestOllamaCorrector_EmptyResponseIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": "  "})
	}))
	defer srv.Close()

	c := NewOllamaCorrector(srv.URL, "test-model", 5*time.Second)
	_, err := c.Correct(context.Background(), "some text long enough to correct")
	assert.Error(t, err)
}
