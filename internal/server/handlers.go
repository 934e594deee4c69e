package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/hyperjump/chunkrank/internal/evaluation"
	"github.com/hyperjump/chunkrank/internal/extract"
	"github.com/hyperjump/chunkrank/internal/models"
	"github.com/hyperjump/chunkrank/internal/ranking"
	"go.uber.org/zap"
)

type explainResponse struct {
	Query        string                 `json:"query"`
	Explanations []*ranking.Explanation `json:"explanations"`
}

type evaluateResponse struct {
	Score    float64             `json:"score"`
	Criteria evaluation.Criteria `json:"criteria"`
}

func (s *Server) handleChunkDocument(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("chunk document request", zap.String("id", input.ID), zap.String("title", input.Title))
	result, err := s.indexer.Process(r.Context(), &input)
	if err != nil {
		s.respondFailure(w, "chunking failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxUploadMemory); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	s.logger.Debug("upload document request", zap.String("filename", header.Filename), zap.Int64("size", header.Size))
	result, err := s.indexer.ProcessReader(r.Context(), file, header.Filename)
	if err != nil {
		s.respondFailure(w, "upload processing failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRerank(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRerankRequest(w, r)
	if !ok {
		return
	}
	start := time.Now()
	results, err := s.ranker.Rerank(req.Query, req.ToCandidates(), req.K())
	if err != nil {
		s.respondFailure(w, "rerank failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, &models.RerankResponse{
		Query:           req.Query,
		Results:         results,
		TotalCandidates: len(req.Candidates),
		QueryTime:       time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRerankRequest(w, r)
	if !ok {
		return
	}
	explanations, err := s.ranker.Explain(req.Query, req.ToCandidates())
	if err != nil {
		s.respondFailure(w, "explain failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, &explainResponse{Query: req.Query, Explanations: explanations})
}

// decodeRerankRequest reads and validates a rerank body, responding on failure.
func (s *Server) decodeRerankRequest(w http.ResponseWriter, r *http.Request) (*models.RerankRequest, bool) {
	var req models.RerankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := req.Validate(s.ranker.Config().DefaultTopK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	s.logger.Debug("rerank request",
		zap.String("query", req.Query),
		zap.Int("candidates", len(req.Candidates)),
		zap.Int("top_k", req.K()))
	return &req, true
}

// handleEvaluate accepts criteria with English or Spanish keys, or a raw judge reply
// containing such an object.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	criteria, err := evaluation.ParseCriteria(string(body))
	if err != nil {
		s.respondFailure(w, "evaluate failed", err)
		return
	}
	score, err := s.evaluator.Score(criteria)
	if err != nil {
		s.respondFailure(w, "evaluate failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, &evaluateResponse{Score: score, Criteria: criteria})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondFailure maps invalid input to 400 and everything else to 500.
func (s *Server) respondFailure(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, extract.ErrTooLarge):
		s.logger.Debug(msg, zap.Error(err))
		s.respondError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, models.ErrInvalidArgument), errors.Is(err, models.ErrInvalidConfiguration),
		errors.Is(err, extract.ErrMalformed):
		s.logger.Debug(msg, zap.Error(err))
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error(msg, zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
