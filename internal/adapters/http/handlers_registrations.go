package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clubhouse/internal/adapters/http/middleware"
	"clubhouse/internal/application/orchestrators"
)

type registrationReviewRequest struct {
	Reason string `json:"reason"`
}

// handleReviewRegistration returns the handler for POST /api/registrations/{id}/approve and /reject.
// Approve accepts an empty body; reject requires a reason.
func (s *Server) handleReviewRegistration(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := middleware.GetSessionFromContext(r.Context())
		var req registrationReviewRequest
		if r.ContentLength != 0 {
			if err := strictDecode(w, r, &req); err != nil {
				writeError(w, err)
				return
			}
		}

		reg, err := orchestrators.ExecuteReviewRegistration(r.Context(), orchestrators.RegistrationTransitionInput{
			ActorID:        sess.AccountID,
			RegistrationID: chi.URLParam(r, "id"),
			Action:         action,
			Reason:         req.Reason,
		}, s.transitionDeps())
		if err != nil {
			writeError(w, err)
			return
		}
		middleware.WriteJSON(w, http.StatusOK, newRegistrationView(reg))
	}
}

// handleCancelRegistration withdraws the caller's own registration (POST /api/registrations/{id}/cancel).
func (s *Server) handleCancelRegistration(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	reg, err := orchestrators.ExecuteCancelRegistration(r.Context(), orchestrators.RegistrationTransitionInput{
		ActorID:        sess.AccountID,
		RegistrationID: chi.URLParam(r, "id"),
	}, s.transitionDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, newRegistrationView(reg))
}

// handleRemoveRegistration lets staff remove an athlete from an activity (DELETE /api/registrations/{id}).
func (s *Server) handleRemoveRegistration(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	err := orchestrators.ExecuteRemoveAthlete(r.Context(), orchestrators.RemoveAthleteInput{
		ActorID:        sess.AccountID,
		RegistrationID: chi.URLParam(r, "id"),
	}, orchestrators.RemoveAthleteDeps{
		Scopes:            s.scopes(),
		Tx:                s.deps.Tx,
		ActivityStore:     s.deps.Stores.ActivityStore,
		RegistrationStore: s.deps.Stores.RegistrationStore,
		AuditStore:        s.deps.Stores.AuditStore,
		Notifier:          s.deps.Notifier,
		Now:               s.deps.Now,
		GenerateID:        s.deps.GenerateID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) transitionDeps() orchestrators.RegistrationTransitionDeps {
	return orchestrators.RegistrationTransitionDeps{
		Scopes:            s.scopes(),
		Tx:                s.deps.Tx,
		ActivityStore:     s.deps.Stores.ActivityStore,
		AthleteStore:      s.deps.Stores.AthleteStore,
		RegistrationStore: s.deps.Stores.RegistrationStore,
		AuditStore:        s.deps.Stores.AuditStore,
		Notifier:          s.deps.Notifier,
		Now:               s.deps.Now,
		GenerateID:        s.deps.GenerateID,
	}
}
