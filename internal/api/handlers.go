package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"

	"filingrag/internal/index"
	"filingrag/internal/pipeline"
	"filingrag/internal/registry"
)

type queryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
	Company  string `json:"company"`
	Year     string `json:"year"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}
	if req.TopK <= 0 {
		req.TopK = 5
	}

	vector, err := s.answers.EmbedQuery(r.Context(), req.Question)
	if err != nil {
		s.log.Error("query embedding failed", "error", err)
		jsonError(w, "embedding failed", http.StatusBadGateway)
		return
	}

	matches, err := s.store.Search(r.Context(), vector, req.TopK, req.Company, req.Year)
	if err != nil {
		s.log.Error("search failed", "error", err)
		jsonError(w, "search failed", http.StatusInternalServerError)
		return
	}

	result, err := s.answers.Answer(r.Context(), req.Question, matches)
	if err != nil {
		s.log.Error("answer generation failed", "error", err)
		jsonError(w, "answer generation failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"question":    req.Question,
		"answer":      result.Answer,
		"answer_html": renderMarkdown(result.Answer),
		"sources":     result.Sources,
	})
}

type searchRequest struct {
	Query   string `json:"query"`
	TopK    int    `json:"top_k"`
	Company string `json:"company"`
	Year    string `json:"year"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}
	if req.TopK <= 0 {
		req.TopK = 5
	}

	vector, err := s.answers.EmbedQuery(r.Context(), req.Query)
	if err != nil {
		s.log.Error("query embedding failed", "error", err)
		jsonError(w, "embedding failed", http.StatusBadGateway)
		return
	}

	matches, err := s.store.Search(r.Context(), vector, req.TopK, req.Company, req.Year)
	if err != nil {
		s.log.Error("search failed", "error", err)
		jsonError(w, "search failed", http.StatusInternalServerError)
		return
	}
	if matches == nil {
		matches = []index.Match{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   req.Query,
		"results": matches,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.log.Error("stats failed", "error", err)
		jsonError(w, "stats failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents":   stats.Documents,
		"chunks":      stats.Chunks,
		"companies":   stats.Companies,
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

type processRequest struct {
	Dir string `json:"dir"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Dir == "" {
		req.Dir = s.cfg.FilingsDir
	}

	job := pipeline.NewJob(req.Dir)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"dir":      job.Dir,
		"status":   job.Status,
		"poll_url": "/api/process/" + job.ID + "/status",
	})
}

func (s *Server) handleProcessStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":   snap.ID,
		"dir":      snap.Dir,
		"status":   snap.Status,
		"phase":    snap.Phase,
		"progress": snap.Progress,
	})
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	s.regMu.Lock()
	reg := s.reg
	s.regMu.Unlock()

	companies := make([]map[string]string, 0, len(reg.Companies))
	for _, symbol := range reg.Symbols() {
		c, _ := reg.Get(symbol)
		companies = append(companies, map[string]string{
			"symbol": symbol,
			"name":   c.Name,
			"cik":    c.CIK,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": companies})
}

type addCompanyRequest struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	CIK    string `json:"cik"`
}

func (s *Server) handleAddCompany(w http.ResponseWriter, r *http.Request) {
	var req addCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Symbol == "" || req.CIK == "" {
		jsonError(w, "symbol and cik are required", http.StatusBadRequest)
		return
	}

	s.regMu.Lock()
	s.reg = s.reg.Add(req.Symbol, registry.Company{Name: req.Name, CIK: req.CIK})
	err := s.reg.Save(s.cfg.RegistryPath)
	s.regMu.Unlock()
	if err != nil {
		s.log.Error("registry save failed", "error", err)
		jsonError(w, "failed to persist registry", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"added": req.Symbol})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// renderMarkdown converts a markdown answer to HTML for the demo page.
func renderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return ""
	}
	return buf.String()
}
