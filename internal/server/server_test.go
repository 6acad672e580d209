package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docanchor/docanchor/internal/chunker"
	"github.com/docanchor/docanchor/internal/cite"
	"github.com/docanchor/docanchor/internal/document"
	"github.com/docanchor/docanchor/internal/index"
	"github.com/docanchor/docanchor/internal/llm/llmtest"
	"github.com/docanchor/docanchor/internal/pipeline"
	"github.com/docanchor/docanchor/internal/rerank"
	"github.com/docanchor/docanchor/internal/verify"
)

const solarDoc = "Solar panels convert sunlight into electricity. " +
	"Solar panels capture sunlight on rooftops. " +
	"Solar electricity powers homes cheaply."

func newTestServer(t *testing.T, gen *llmtest.Generator) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	embedder := &llmtest.Embedder{}
	pipe := pipeline.New(pipeline.Deps{
		Embedder:  embedder,
		Generator: gen,
		Index:     index.NewGuarded(index.NewStore(t.TempDir(), 32)),
		Chunker:   chunker.New(embedder, chunker.Options{}),
		Reranker:  rerank.New(&llmtest.Scorer{}, 20, 5),
		Verifier:  verify.New(embedder, verify.Options{}),
		Extractor: cite.NewExtractor(20),
		Prompts:   pipeline.NewPromptBuilder(5),
		Loader:    document.NewTextLoader(),
		Cleaner:   document.NewCleaner(),
	}, pipeline.Options{})

	srv := New(pipe, t.TempDir())
	return srv, srv.SetupRouter()
}

func uploadRequest(t *testing.T, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "paper.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func askRequestBody(t *testing.T, question string) *http.Request {
	t.Helper()
	body, err := json.Marshal(map[string]string{"question": question})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestUploadAndStatus(t *testing.T) {
	_, r := newTestServer(t, &llmtest.Generator{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, solarDoc))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "indexed", resp["status"])
	assert.Equal(t, "paper.txt", resp["filename"])
	assert.NotEmpty(t, resp["doc_id"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/index/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var st map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, float64(1), st["document_count"])
}

func TestUploadMissingFile(t *testing.T) {
	_, r := newTestServer(t, &llmtest.Generator{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadReplacesPreviousIndex(t *testing.T) {
	_, r := newTestServer(t, &llmtest.Generator{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, solarDoc))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "Glaciers carve valleys over millennia. Glacial ice compresses snow into dense layers."))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["document_count"])
}

func TestAskEmptyQuestion(t *testing.T) {
	_, r := newTestServer(t, &llmtest.Generator{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, askRequestBody(t, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAskWithoutDocuments(t *testing.T) {
	_, r := newTestServer(t, &llmtest.Generator{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, askRequestBody(t, "What do solar panels do?"))
	require.Equal(t, http.StatusOK, w.Code, "fail-closed pipeline always answers 200")

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "refused", resp["verdict"])
	assert.Equal(t, "No documents have been uploaded yet.", resp["answer"])
}

func TestAskSupportedAnswerAndMetrics(t *testing.T) {
	gen := &llmtest.Generator{Response: "Solar panels convert sunlight into electricity [E1]."}
	_, r := newTestServer(t, gen)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, solarDoc))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, askRequestBody(t, "How do solar panels make electricity?"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "supported", resp["verdict"])
	assert.Contains(t, resp["answer"], "sunlight into electricity")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/faithfulness", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var metrics map[string]float64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
	assert.Equal(t, 0.0, metrics["refusal_rate"])
	assert.Equal(t, 1.0, metrics["sentence_support_rate"])
}

func TestAskRejectedAnswerCountsAsUnsupported(t *testing.T) {
	gen := &llmtest.Generator{Response: "Medieval castles defended hilltop towns across Europe. " +
		"Castle walls withstood long sieges from rival armies."}
	_, r := newTestServer(t, gen)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, solarDoc))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, askRequestBody(t, "How do solar panels make electricity?"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"verdict":"refused"`))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/faithfulness", nil))
	var metrics map[string]float64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
	assert.Equal(t, 1.0, metrics["refusal_rate"])
	assert.Greater(t, metrics["unsupported_claim_rate"], 0.0)
}

func TestClearIndex(t *testing.T) {
	_, r := newTestServer(t, &llmtest.Generator{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, solarDoc))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/index", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/index/status", nil))
	var st map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, float64(0), st["chunk_count"])
}

func TestHealth(t *testing.T) {
	_, r := newTestServer(t, &llmtest.Generator{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
