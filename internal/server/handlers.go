package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/inkhaven/inkdex/internal/corpus"
	"github.com/inkhaven/inkdex/internal/embedding"
	"github.com/inkhaven/inkdex/internal/models"
	"github.com/inkhaven/inkdex/internal/vectortable"
)

// statusFor maps domain errors to HTTP status codes. Invalid input is the
// caller's fault; a dimension mismatch is a configuration conflict between
// model and table; provider failures are a bad upstream; storage failures
// mean the service itself is not usable right now.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, vectortable.ErrDimensionMismatch):
		return http.StatusConflict
	case errors.Is(err, embedding.ErrEmbeddingFailed):
		return http.StatusBadGateway
	case errors.Is(err, vectortable.ErrNotInitialized),
		errors.Is(err, vectortable.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	kind, err := corpus.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var id string
	switch kind {
	case corpus.KindDocuments:
		var input models.DocumentInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		id, err = s.corpus.IndexDocument(r.Context(), &input)
	case corpus.KindCharacters:
		var input models.CharacterInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		id, err = s.corpus.IndexCharacter(r.Context(), &input)
	case corpus.KindThemes:
		var input models.ThemeInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		id, err = s.corpus.IndexTheme(r.Context(), &input)
	}
	if err != nil {
		s.logger.Error("indexing failed", zap.String("kind", string(kind)), zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": id, "status": "indexed"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	kind, err := corpus.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// An omitted limit decodes to zero; fill in the configured default here,
	// at the boundary, so an explicit non-positive limit still gets rejected
	// downstream.
	if query.Limit == 0 {
		query.Limit = s.config.Search.DefaultLimit
	}
	s.logger.Debug("search request",
		zap.String("kind", string(kind)),
		zap.String("query", query.Query),
		zap.Int("limit", query.Limit))
	response, err := s.corpus.Search(r.Context(), kind, &query)
	if err != nil {
		s.logger.Error("search failed", zap.String("kind", string(kind)), zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, err := corpus.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete request", zap.String("kind", string(kind)), zap.String("id", id))
	if err := s.corpus.Delete(r.Context(), kind, id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	deleted, failures := s.corpus.DeleteAllForProject(r.Context(), projectID)
	if len(failures) > 0 {
		s.logger.Error("project purge incomplete",
			zap.String("project_id", projectID),
			zap.Int64("deleted", deleted),
			zap.Int("failed_tables", len(failures)))
		msgs := make([]string, len(failures))
		status := http.StatusInternalServerError
		for i, f := range failures {
			msgs[i] = f.Error()
			if i == 0 {
				status = statusFor(f)
			}
		}
		s.respondJSON(w, status, map[string]interface{}{
			"deleted": deleted,
			"errors":  msgs,
		})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": deleted,
		"status":  "purged",
	})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	kind, err := corpus.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	schema, err := s.corpus.Schema(kind)
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, schema)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.corpus.Counts(r.Context())
	if err != nil {
		s.logger.Error("status: counts failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	tables := make(map[string]int64, len(counts))
	var total int64
	for kind, n := range counts {
		tables[string(kind)] = n
		total += n
	}
	provider := s.corpus.Provider()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tables":        tables,
		"total_records": total,
		"config": map[string]interface{}{
			"engine":               s.config.Storage.Engine,
			"database_path":        s.config.Storage.DatabasePath,
			"embedding_model":      provider.Model(),
			"embedding_dimensions": provider.Dimensions(),
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
