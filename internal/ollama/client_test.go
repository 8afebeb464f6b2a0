package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/perbu/groundrag/internal/ollama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingsSendsModelAndPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "nomic-embed-text", body["model"])
		assert.Equal(t, "hello", body["prompt"])
		_, _ = w.Write([]byte(`{"embedding":[0.5,1.5,-2]}`))
	}))
	defer srv.Close()

	c, err := ollama.New(srv.URL, time.Second)
	require.NoError(t, err)
	vec, err := c.Embeddings(context.Background(), "nomic-embed-text", "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 1.5, -2}, vec)
}

func TestGenerateDisablesStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, false, body["stream"])
		assert.Equal(t, "llama3:latest", body["model"])
		_, _ = w.Write([]byte(`{"response":"  raw answer\n"}`))
	}))
	defer srv.Close()

	c, err := ollama.New(srv.URL+"/", time.Second)
	require.NoError(t, err)
	out, err := c.Generate(context.Background(), "llama3:latest", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "  raw answer\n", out)
}

func TestNonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	c, err := ollama.New(srv.URL, time.Second)
	require.NoError(t, err)
	_, err = c.Embeddings(context.Background(), "missing", "x")
	require.Error(t, err)
	var status api.StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusNotFound, status.StatusCode)
	assert.Contains(t, err.Error(), "model not found")
}

func TestSingleAttemptPerCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"busy"}`))
	}))
	defer srv.Close()

	c, err := ollama.New(srv.URL, time.Second)
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "m", "x")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestTimeoutBoundsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"embedding":[1]}`))
	}))
	defer srv.Close()

	c, err := ollama.New(srv.URL, 20*time.Millisecond)
	require.NoError(t, err)
	_, err = c.Embeddings(context.Background(), "m", "x")
	require.Error(t, err)
}

func TestNewRejectsURLWithoutHost(t *testing.T) {
	_, err := ollama.New("localhost", time.Second)
	require.Error(t, err)

	c, err := ollama.New("  ", time.Second)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestEmptyEmbeddingIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[]}`))
	}))
	defer srv.Close()

	c, err := ollama.New(srv.URL, time.Second)
	require.NoError(t, err)
	_, err = c.Embeddings(context.Background(), "m", "x")
	require.Error(t, err)
}
