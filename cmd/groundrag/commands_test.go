package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/perbu/groundrag/pkg/embedder"
	ragerr "github.com/perbu/groundrag/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ragAnswer   = "A basic calculator is allowed [calculator.md:0]"
	noRAGAnswer = "Probably yes.\nCheck with | your school."
)

// fakeOllama serves /api/embeddings with a deterministic bag-of-words
// embedder and /api/generate with a canned answer per mode. With
// failNoRAG set, generate requests without retrieved context get a 500.
func fakeOllama(t *testing.T, failNoRAG bool) *httptest.Server {
	t.Helper()
	e := embedder.NewSimpleEmbedder(32)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/embeddings":
			v, _ := e.Embed(context.Background(), req.Prompt)
			_ = json.NewEncoder(w).Encode(map[string]any{"embedding": v})
		case "/api/generate":
			answer := noRAGAnswer
			if strings.Contains(req.Prompt, "CONTEXT:") {
				answer = ragAnswer
			} else if failNoRAG {
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]any{"error": "model crashed"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"response": answer, "done": true})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func words(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(parts, " ")
}

type env struct {
	docsDir  string
	indexDir string
	url      string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	docs := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "exam-rules.txt"), []byte(words("rule", 310)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "calculator.md"), []byte(words("calc", 40)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "notes.csv"), []byte("ignored"), 0o644))

	return env{docsDir: docs, indexDir: filepath.Join(dir, "index"), url: fakeOllama(t, false).URL}
}

func (e env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args,
		"--docs-dir", e.docsDir,
		"--index-dir", e.indexDir,
		"--ollama-url", e.url,
		"--log-level", "error",
	))
	err := root.Execute()
	return out.String(), err
}

func (e env) index(t *testing.T) {
	t.Helper()
	_, err := e.run(t, "", "index")
	require.NoError(t, err)
}

func TestRootCommand_Help(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"--help"})

	require.NoError(t, root.Execute())
	for _, sub := range []string{"index", "search", "ask", "chat", "compare", "version", "--docs-dir", "--index-dir"} {
		assert.Contains(t, buf.String(), sub)
	}
}

func TestVersionCommand(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "groundrag dev")
}

func TestIndexCommand(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "index")
	require.NoError(t, err)
	assert.Contains(t, out, "Corpus: 3 chunks")
	assert.Contains(t, out, "Index: 3 vectors (dim=32, model=ollama-nomic-embed-text)")
	assert.FileExists(t, filepath.Join(e.indexDir, "vectors.gob"))
	assert.FileExists(t, filepath.Join(e.indexDir, "corpus.gob"))
}

func TestIndexCommand_ChunkFlags(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "index", "--chunk-size", "100", "--overlap", "0")
	require.NoError(t, err)
	// 310 words in windows of 100 give 4 chunks, plus one for the 40 word file.
	assert.Contains(t, out, "Corpus: 5 chunks")
}

func TestIndexCommand_EmptyDocsDir(t *testing.T) {
	e := newEnv(t)
	e.docsDir = t.TempDir()

	_, err := e.run(t, "", "index")
	require.Error(t, err)
	assert.True(t, ragerr.HasCode(err, ragerr.CodeCorpusBuildEmpty))
	assert.NoDirExists(t, e.indexDir)
}

func TestIndexCommand_ServiceDown(t *testing.T) {
	e := newEnv(t)
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	down.Close()
	e.url = down.URL

	_, err := e.run(t, "", "index")
	require.Error(t, err)
	assert.True(t, ragerr.IsUpstreamFailure(err))
	assert.NoFileExists(t, filepath.Join(e.indexDir, "vectors.gob"))
}

func TestSearchCommand(t *testing.T) {
	e := newEnv(t)
	e.index(t)

	out, err := e.run(t, "", "search", "calc3", "calc7", "--top-k", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 results")
	assert.Contains(t, out, "[calculator.md:0]")

	out, err = e.run(t, "", "search", "calc3", "--top-k", "1", "--full")
	require.NoError(t, err)
	assert.Contains(t, out, "calc0 calc1 calc2")

	// The second exam-rules chunk covers rule250..rule309, so asking for
	// exactly those words puts it at distance 0.
	args := []string{"search"}
	for i := 250; i < 310; i++ {
		args = append(args, fmt.Sprintf("rule%d", i))
	}
	out, err = e.run(t, "", append(args, "--top-k", "1", "--context", "1")...)
	require.NoError(t, err)
	assert.Contains(t, out, ">>> MATCHED CHUNK <<<")
	assert.Contains(t, out, "Found 1 results")
	assert.Contains(t, out, "[exam-rules.txt:0]")
	assert.Contains(t, out, "[exam-rules.txt:1]")
	assert.Contains(t, out, "Score: 0.0000 | [exam-rules.txt:1]")
	assert.NotContains(t, out, "[calculator.md:0]")
	assert.Less(t, strings.Index(out, "[exam-rules.txt:0]"), strings.Index(out, ">>> MATCHED CHUNK <<<"))
}

func TestSearchCommand_NoIndex(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "", "search", "anything")
	require.Error(t, err)
	assert.True(t, ragerr.IsNotFound(err))
}

func TestAskCommand(t *testing.T) {
	e := newEnv(t)
	e.index(t)

	out, err := e.run(t, "", "ask", "Can", "I", "use", "calc3?")
	require.NoError(t, err)
	assert.Equal(t, ragAnswer+"\n", out)

	out, err = e.run(t, "", "ask", "--show-context", "calc3?")
	require.NoError(t, err)
	assert.Contains(t, out, "=== CONTEXT ===")
	assert.Contains(t, out, "\n\n---\n\n")
	assert.Contains(t, out, ragAnswer)

	out, err = e.run(t, "", "ask", "--no-context", "calc3?")
	require.NoError(t, err)
	assert.Equal(t, noRAGAnswer+"\n", out)
}

func TestChatCommand(t *testing.T) {
	e := newEnv(t)
	e.index(t)

	out, err := e.run(t, "calc3?\nrule5?\nQUIT\nnever asked\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "Index loaded with 3 chunks.")
	assert.Equal(t, 2, strings.Count(out, "=== RAG ANSWER ==="))
	assert.NotContains(t, out, "NO-RAG")

	out, err = e.run(t, "calc3?\n\n", "chat", "--compare")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "=== NO-RAG ANSWER ==="))
	assert.Equal(t, 1, strings.Count(out, "=== RAG ANSWER ==="))

	// End of input ends the session like an exit keyword.
	_, err = e.run(t, "calc3?", "chat")
	require.NoError(t, err)
}

func TestChatCommand_CompareKeepsRAGAnswerWhenNoRAGFails(t *testing.T) {
	e := newEnv(t)
	e.index(t)
	e.url = fakeOllama(t, true).URL

	out, err := e.run(t, "calc3?\nrule5?\n\n", "chat", "--compare")
	require.NoError(t, err)
	assert.NotContains(t, out, "=== NO-RAG ANSWER ===")
	assert.Equal(t, 2, strings.Count(out, "=== RAG ANSWER ==="))
	assert.Contains(t, out, ragAnswer)
}

func TestIsExit(t *testing.T) {
	for _, s := range []string{"", "quit", "exit", "Quit", "EXIT"} {
		assert.True(t, isExit(s), s)
	}
	assert.False(t, isExit("quitting time?"))
}

func TestCompareCommand(t *testing.T) {
	e := newEnv(t)
	e.index(t)

	dir := t.TempDir()
	questions := filepath.Join(dir, "questions.txt")
	require.NoError(t, os.WriteFile(questions, []byte("# exam questions\nIs calc3 allowed?\n\nWhat about rule9?\n"), 0o644))
	mdPath := filepath.Join(dir, "comparison.md")
	htmlPath := filepath.Join(dir, "comparison.html")

	out, err := e.run(t, "", "compare", "--questions", questions, "--output", mdPath, "--html", htmlPath, "Can I sit it online?")
	require.NoError(t, err)
	assert.Contains(t, out, "Markdown table written to "+mdPath)

	data, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	md := string(data)
	assert.Contains(t, md, "| Question | no-RAG | RAG |")
	assert.Contains(t, md, `| Q1 | Probably yes. Check with \| your school. | `+ragAnswer+" |")
	assert.Contains(t, md, "- **Q3**: Can I sit it online?")
	assert.NotContains(t, md, "Q4")

	html, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<table>")
}

func TestCompareCommand_NoQuestions(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "", "compare")
	require.Error(t, err)
	assert.True(t, ragerr.IsInvalidInput(err))
}

func TestConfigFile(t *testing.T) {
	e := newEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "groundrag.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("chunk:\n  size: 1000\n  overlap: 0\n"), 0o644))

	out, err := e.run(t, "", "index", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Corpus: 2 chunks")

	_, err = e.run(t, "", "index", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, ragerr.HasCode(err, ragerr.CodeConfigLoadReadFailure))
}
