// Package server exposes the pipeline over HTTP: document upload,
// question answering, index administration, and health.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/docanchor/docanchor/internal/eval"
	"github.com/docanchor/docanchor/internal/model"
	"github.com/docanchor/docanchor/internal/pipeline"
)

type Server struct {
	pipe      *pipeline.Pipeline
	metrics   *eval.FaithfulnessMetrics
	uploadDir string
}

func New(pipe *pipeline.Pipeline, uploadDir string) *Server {
	return &Server{
		pipe:      pipe,
		metrics:   eval.NewFaithfulnessMetrics(),
		uploadDir: uploadDir,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/upload", s.Upload)
	r.POST("/ask", s.Ask)
	r.DELETE("/index", s.ClearIndex)
	r.GET("/index/status", s.Status)
	r.GET("/metrics/faithfulness", s.Faithfulness)
	r.GET("/health", s.Health)

	return r
}

// Upload saves the posted file and ingests it. The index is cleared
// first so each upload starts fresh; the write lock held by ingestion
// keeps concurrent queries from seeing the intermediate state.
func (s *Server) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		slog.Error("failed to create upload dir", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
		return
	}

	dst := filepath.Join(s.uploadDir, fmt.Sprintf("%s%s", uuid.New().String(), filepath.Ext(file.Filename)))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		slog.Error("failed to save upload", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
		return
	}

	report, err := s.pipe.Ingest(c.Request.Context(), dst, true)
	if err != nil {
		slog.Error("ingestion failed", "file", file.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest document"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "indexed",
		"doc_id":         report.DocID,
		"filename":       file.Filename,
		"chunk_count":    report.ChunkCount,
		"document_count": report.DocumentCount,
	})
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

// Ask answers a question against the indexed documents. The pipeline
// is fail-closed, so this handler always returns 200 with a verdict.
func (s *Server) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question cannot be empty"})
		return
	}

	result := s.pipe.Query(c.Request.Context(), req.Question)

	// Verifier rejections surface as refusals; restore the verdict
	// the verifier produced so faithfulness metrics stay accurate.
	verdict := result.Verdict
	if verdict == model.VerdictRefused && result.Reason == pipeline.ReasonVerificationRejected {
		verdict = model.VerdictUnsupported
	}
	s.metrics.Update(model.VerificationResult{
		Verdict:              verdict,
		UnsupportedSentences: result.UnsupportedSentences,
	})

	c.JSON(http.StatusOK, result)
}

func (s *Server) ClearIndex(c *gin.Context) {
	if err := s.pipe.ClearIndex(); err != nil {
		slog.Error("failed to clear index", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear index"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (s *Server) Status(c *gin.Context) {
	c.JSON(http.StatusOK, s.pipe.Status())
}

func (s *Server) Faithfulness(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Compute())
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
