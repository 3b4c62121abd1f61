package capability

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPreprocessor_Preprocess(t *testing.T) {
	processed := []byte("normalized image bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/preprocess/", r.URL.Path)
		assert.Equal(t, "handwriting", r.URL.Query().Get("preset"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		file.Close()

		json.NewEncoder(w).Encode(map[string]string{
			"processed_image": base64.StdEncoding.EncodeToString(processed),
		})
	}))
	defer srv.Close()

	p := NewHTTPPreprocessor(srv.URL, 5*time.Second)
	got, err := p.Preprocess(context.Background(), []byte("raw"), "handwriting")
	require.NoError(t, err)
	assert.Equal(t, processed, got)
}

func TestHTTPPreprocessor_StripsDataURIPrefix(t *testing.T) {
	processed := []byte{0x89, 0x50, 0x4e, 0x47}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"processed_image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(processed),
		})
	}))
	defer srv.Close()

	p := NewHTTPPreprocessor(srv.URL, 5*time.Second)
	got, err := p.Preprocess(context.Background(), []byte("raw"), "auto")
	require.NoError(t, err)
	assert.Equal(t, processed, got)
}

func TestHTTPPreprocessor_MissingImageIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	p := NewHTTPPreprocessor(srv.URL, 5*time.Second)
	_, err := p.Preprocess(context.Background(), []byte("raw"), "auto")
	assert.Error(t, err)
}

func TestHTTPPreprocessor_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "cv2 exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPPreprocessor(srv.URL, 5*time.Second)
	_, err := p.Preprocess(context.Background(), []byte("raw"), "auto")
	assert.Error(t, err)
}
