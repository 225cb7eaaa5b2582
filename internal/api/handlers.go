package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/models"
	"visa-tracker/internal/query"
)

type addApplicantRequest struct {
	FirstName    string `json:"firstName" validate:"required,max=100"`
	LastName     string `json:"lastName" validate:"required,max=100"`
	ChosenSchool string `json:"chosenSchool" validate:"max=200"`
	Table        string `json:"table" validate:"omitempty,max=100"`
}

type replaceTableRequest struct {
	Records []models.Applicant `json:"records" validate:"required"`
}

// applicantView pairs the stored record with its derived display fields.
type applicantView struct {
	Record  models.Applicant `json:"record"`
	Summary models.Summary   `json:"summary"`
}

type listResponse struct {
	Count int             `json:"count"`
	Items []applicantView `json:"items"`
}

func (s *Server) view(a models.Applicant) applicantView {
	return applicantView{Record: a, Summary: a.Summarize(s.svc.Now())}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ready(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready", "tables": s.svc.Tables()})
}

func filterFromQuery(r *http.Request) query.Filter {
	q := r.URL.Query()
	return query.Filter{
		Stage:    q.Get("stage"),
		Agent:    q.Get("agent"),
		School:   q.Get("school"),
		Attempts: q.Get("attempts"),
		Month:    q.Get("month"),
		Search:   q.Get("search"),
	}
}

func (s *Server) handleListApplicants(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.List(r.Context(), filterFromQuery(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := listResponse{Count: len(records), Items: make([]applicantView, 0, len(records))}
	for _, a := range records {
		resp.Items = append(resp.Items, s.view(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetApplicant(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(a))
}

func (s *Server) handleAddApplicant(w http.ResponseWriter, r *http.Request) {
	var req addApplicantRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, r, apperrors.NewInvalidInputError(err.Error()))
		return
	}

	res, err := s.svc.Add(r.Context(), req.Table, req.FirstName, req.LastName, req.ChosenSchool)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleUpdateApplicant(w http.ResponseWriter, r *http.Request) {
	var rec models.Applicant
	if err := decode(r, &rec); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.validate.Var(strings.TrimSpace(rec.FirstName+rec.LastName), "required"); err != nil {
		s.writeError(w, r, apperrors.NewInvalidInputError("first or last name is required"))
		return
	}

	saved, err := s.svc.Update(r.Context(), r.URL.Query().Get("table"), chi.URLParam(r, "name"), rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(saved))
}

func (s *Server) handleReplaceTable(w http.ResponseWriter, r *http.Request) {
	var req replaceTableRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, r, apperrors.NewInvalidInputError(err.Error()))
		return
	}

	table := chi.URLParam(r, "table")
	if err := s.svc.ReplaceTable(r.Context(), table, req.Records); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"table": table, "rows": len(req.Records)})
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	opts, err := s.svc.FilterOptions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Alerts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Alert(r.Context(), chi.URLParam(r, "rule"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSendDigest(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.SendDigest(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAgentSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.svc.AgentSuggestions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(suggestions), "items": suggestions})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	checklist, err := s.svc.Documents(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"checklist": checklist,
		"complete":  checklist.Complete(),
		"counts":    checklist.Counts(),
	})
}
