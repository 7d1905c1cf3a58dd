package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clubhouse/internal/adapters/http/middleware"
	"clubhouse/internal/application/orchestrators"
	"clubhouse/internal/application/projections"
	"clubhouse/internal/domain/application"
)

type applicationRequest struct {
	ClubID       string                   `json:"club_id"`
	PersonalInfo application.PersonalInfo `json:"personal_info"`
	Documents    []application.Document   `json:"documents"`
}

type reviewRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

type reviewResponse struct {
	Application applicationView `json:"application"`
	Athlete     *athleteView    `json:"athlete,omitempty"`
}

// handleSubmitApplication files a membership application (POST /api/applications).
func (s *Server) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	var req applicationRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	app, err := orchestrators.ExecuteSubmitApplication(r.Context(), orchestrators.SubmitApplicationInput{
		ActorID:      sess.AccountID,
		ClubID:       req.ClubID,
		PersonalInfo: req.PersonalInfo,
		Documents:    req.Documents,
	}, orchestrators.SubmitApplicationDeps{
		Scopes:           s.scopes(),
		Tx:               s.deps.Tx,
		ClubStore:        s.deps.Stores.ClubStore,
		AthleteStore:     s.deps.Stores.AthleteStore,
		ApplicationStore: s.deps.Stores.ApplicationStore,
		AccountStore:     s.deps.Stores.AccountStore,
		Guard:            s.deps.Guard,
		AuditStore:       s.deps.Stores.AuditStore,
		Notifier:         s.deps.Notifier,
		Now:              s.deps.Now,
		GenerateID:       s.deps.GenerateID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, newApplicationView(app))
}

// handleListApplications lists the applications visible to the caller (GET /api/applications).
// Query: club_id, status. Responses carry an ETag when the view maps to cache tags.
func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	q := r.URL.Query()

	result, err := projections.QueryGetApplications(r.Context(), projections.GetApplicationsQuery{
		ActorID: sess.AccountID,
		ClubID:  q.Get("club_id"),
		Status:  q.Get("status"),
	}, s.applicationQueryDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeCached(w, r, result.Tags, newApplicationViews(result.Applications))
}

// handleGetApplication returns one application (GET /api/applications/{id}).
func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	app, err := projections.QueryGetApplication(r.Context(), projections.GetApplicationQuery{
		ActorID:       sess.AccountID,
		ApplicationID: chi.URLParam(r, "id"),
	}, s.applicationQueryDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, newApplicationView(app))
}

// handleUpdateApplication resubmits an application after an info request (PUT /api/applications/{id}).
func (s *Server) handleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	var req applicationRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	app, err := orchestrators.ExecuteUpdateApplication(r.Context(), orchestrators.UpdateApplicationInput{
		ActorID:       sess.AccountID,
		ApplicationID: chi.URLParam(r, "id"),
		PersonalInfo:  req.PersonalInfo,
		Documents:     req.Documents,
	}, orchestrators.UpdateApplicationDeps{
		Scopes:           s.scopes(),
		Tx:               s.deps.Tx,
		ApplicationStore: s.deps.Stores.ApplicationStore,
		AthleteStore:     s.deps.Stores.AthleteStore,
		AccountStore:     s.deps.Stores.AccountStore,
		AuditStore:       s.deps.Stores.AuditStore,
		Notifier:         s.deps.Notifier,
		Now:              s.deps.Now,
		GenerateID:       s.deps.GenerateID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, newApplicationView(app))
}

// handleReviewApplication approves, rejects or asks for more information (POST /api/applications/{id}/review).
// POST: on approval the response includes the athlete profile
func (s *Server) handleReviewApplication(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	var req reviewRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := orchestrators.ExecuteReviewApplication(r.Context(), orchestrators.ReviewApplicationInput{
		ActorID:       sess.AccountID,
		ApplicationID: chi.URLParam(r, "id"),
		Action:        req.Action,
		Reason:        req.Reason,
		Note:          req.Note,
	}, orchestrators.ReviewApplicationDeps{
		Scopes:           s.scopes(),
		Tx:               s.deps.Tx,
		ApplicationStore: s.deps.Stores.ApplicationStore,
		AthleteStore:     s.deps.Stores.AthleteStore,
		AccountStore:     s.deps.Stores.AccountStore,
		AuditStore:       s.deps.Stores.AuditStore,
		Notifier:         s.deps.Notifier,
		Now:              s.deps.Now,
		GenerateID:       s.deps.GenerateID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := reviewResponse{Application: newApplicationView(result.Application)}
	if result.Athlete != nil {
		v := newAthleteView(*result.Athlete)
		resp.Athlete = &v
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// handleDeleteApplication removes an application (DELETE /api/admin/applications/{id}).
func (s *Server) handleDeleteApplication(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	err := orchestrators.ExecuteDeleteApplication(r.Context(), orchestrators.DeleteApplicationInput{
		ActorID:       sess.AccountID,
		ApplicationID: chi.URLParam(r, "id"),
	}, orchestrators.DeleteApplicationDeps{
		Scopes:           s.scopes(),
		Tx:               s.deps.Tx,
		ApplicationStore: s.deps.Stores.ApplicationStore,
		AthleteStore:     s.deps.Stores.AthleteStore,
		AccountStore:     s.deps.Stores.AccountStore,
		AuditStore:       s.deps.Stores.AuditStore,
		Notifier:         s.deps.Notifier,
		Now:              s.deps.Now,
		GenerateID:       s.deps.GenerateID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) applicationQueryDeps() projections.GetApplicationsDeps {
	return projections.GetApplicationsDeps{
		Scopes:           s.scopes(),
		ApplicationStore: s.deps.Stores.ApplicationStore,
	}
}
