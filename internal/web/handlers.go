package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dataimport/internal/application"
	"github.com/JonMunkholm/dataimport/internal/core"
	"github.com/JonMunkholm/dataimport/internal/web/templates"
)

// definitionInfo is the JSON view of a definition.
type definitionInfo struct {
	Name   string   `json:"name"`
	Label  string   `json:"label,omitempty"`
	Group  string   `json:"group,omitempty"`
	Fields []string `json:"fields"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := templates.Page("Importers", templates.Definitions(s.service.Definitions()))
	if err := page.Render(r.Context(), w); err != nil {
		s.respondError(w, r, err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":   "ok",
		"database": s.service.HasDatabase(),
		"imports":  s.limiter.Status(),
	})
}

func (s *Server) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	defs := s.service.Definitions()
	out := make([]definitionInfo, 0, len(defs))
	for _, def := range defs {
		out = append(out, definitionInfo{Name: def.Name, Label: def.Label, Group: def.Group, Fields: def.FieldNames()})
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := s.service.Definition(chi.URLParam(r, "name"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, def)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	up, err := s.receiveUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer up.Close()

	limit, _ := strconv.Atoi(r.URL.Query().Get("rows"))
	p, err := s.service.Preview(r.Context(), chi.URLParam(r, "name"), up.src, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.validate(w, r)
	if !ok {
		return
	}
	status := http.StatusOK
	if !rep.Valid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, r, status, rep)
}

// handleReport validates an upload and renders the HTML report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.validate(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := templates.Page("Report: "+rep.Definition, templates.Report(rep))
	if err := page.Render(r.Context(), w); err != nil {
		s.respondError(w, r, err)
	}
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) (*application.Report, bool) {
	up, err := s.receiveUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return nil, false
	}
	defer up.Close()

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return nil, false
	}
	defer s.limiter.Release()

	rep, err := s.service.Validate(r.Context(), chi.URLParam(r, "name"), up.src)
	if err != nil {
		s.respondError(w, r, err)
		return nil, false
	}
	return rep, true
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	up, err := s.receiveUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer up.Close()

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	strict, _ := strconv.ParseBool(r.FormValue("strict"))
	rep, err := s.service.Import(r.Context(), chi.URLParam(r, "name"), up.src, application.ImportOptions{Strict: strict})
	if err != nil {
		if rep == nil {
			s.respondError(w, r, err)
			return
		}
		// The save stopped part way: report what was written.
		s.logError(r, err)
		um := core.MapError(err)
		writeJSON(w, r, statusFor(err), map[string]any{
			"report": rep,
			"error":  ErrorResponse{Error: um.Message, Message: um.Message, Action: um.Action, Code: um.Code},
		})
		return
	}

	status := http.StatusOK
	if strict && !rep.Valid {
		status = http.StatusUnprocessableEntity
	}
	rep.DurationMs = elapsedMs(start)
	writeJSON(w, r, status, rep)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.service.Runs(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, runs)
}
