package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"clubhouse/internal/adapters/http/middleware"
	auditStore "clubhouse/internal/adapters/storage/audit"
	"clubhouse/internal/application/orchestrators"
	auditDomain "clubhouse/internal/domain/audit"
	"clubhouse/internal/domain/failure"
	"clubhouse/internal/domain/outbox"
)

type createClubRequest struct {
	Name      string `json:"name"`
	SportType string `json:"sport_type"`
}

type assignCoachRequest struct {
	AccountID string `json:"account_id"`
}

// handleCreateClub creates a club (POST /api/admin/clubs).
func (s *Server) handleCreateClub(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	var req createClubRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := orchestrators.ExecuteCreateClub(r.Context(), orchestrators.CreateClubInput{
		ActorID:   sess.AccountID,
		Name:      req.Name,
		SportType: req.SportType,
	}, s.manageClubsDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, newClubView(c))
}

// handleAssignCoach assigns a coach account to a club (POST /api/admin/clubs/{id}/coaches).
func (s *Server) handleAssignCoach(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	var req assignCoachRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	coach, err := orchestrators.ExecuteAssignCoach(r.Context(), orchestrators.AssignCoachInput{
		ActorID:   sess.AccountID,
		ClubID:    chi.URLParam(r, "id"),
		AccountID: req.AccountID,
	}, s.manageClubsDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, newCoachView(coach))
}

// handleAdminAudit lists audit events (GET /api/admin/audit).
// Query: category, action, actor_id, resource_type, resource_id, since, limit (1-1000, default 100).
func (s *Server) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := auditStore.Filter{
		Category:     auditDomain.Category(q.Get("category")),
		Action:       auditDomain.Action(q.Get("action")),
		ActorID:      q.Get("actor_id"),
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, &failure.Error{Kind: failure.ErrValidation, Message: "since must be RFC 3339", Field: "since"})
			return
		}
		filter.Since = t
	}
	limit, err := parseLimit(q.Get("limit"), 100, 1000)
	if err != nil {
		writeError(w, err)
		return
	}

	events, err := s.deps.Stores.AuditStore.List(r.Context(), filter, limit)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, events)
}

// handleAdminOutbox lists outbox entries (GET /api/admin/outbox).
// Query: status=failed (default) lists exhausted entries, status=pending lists due ones.
func (s *Server) handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"), 50, 100)
	if err != nil {
		writeError(w, err)
		return
	}

	var entries []outbox.Entry
	switch status := q.Get("status"); status {
	case "", outbox.StatusFailed:
		entries, err = s.deps.Stores.OutboxStore.ListFailed(r.Context(), limit)
	case outbox.StatusPending:
		entries, err = s.deps.Stores.OutboxStore.ListPending(r.Context(), limit)
	default:
		writeError(w, failure.Validation("status must be failed or pending"))
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	out := make([]outboxView, 0, len(entries))
	for _, e := range entries {
		out = append(out, newOutboxView(e))
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// handleAdminOutboxRetry requeues a failed entry and delivers it now (POST /api/admin/outbox/{id}/retry).
func (s *Server) handleAdminOutboxRetry(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	entry, err := orchestrators.ExecuteRetryOutboxEntry(r.Context(), sess.AccountID, chi.URLParam(r, "id"), s.outboxAdminDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, newOutboxView(entry))
}

// handleAdminOutboxAbandon stops retrying an entry (POST /api/admin/outbox/{id}/abandon).
func (s *Server) handleAdminOutboxAbandon(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	entry, err := orchestrators.ExecuteAbandonOutboxEntry(r.Context(), sess.AccountID, chi.URLParam(r, "id"), s.outboxAdminDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, newOutboxView(entry))
}

func (s *Server) manageClubsDeps() orchestrators.ManageClubsDeps {
	return orchestrators.ManageClubsDeps{
		Scopes:       s.scopes(),
		Tx:           s.deps.Tx,
		ClubStore:    s.deps.Stores.ClubStore,
		AccountStore: s.deps.Stores.AccountStore,
		AuditStore:   s.deps.Stores.AuditStore,
		Now:          s.deps.Now,
		GenerateID:   s.deps.GenerateID,
	}
}

func (s *Server) outboxAdminDeps() orchestrators.OutboxAdminDeps {
	return orchestrators.OutboxAdminDeps{
		Scopes:      s.scopes(),
		OutboxStore: s.deps.Stores.OutboxStore,
		Sender:      s.deps.Sender,
		Recorder:    s.deps.Deliveries,
		Now:         s.deps.Now,
	}
}

// parseLimit reads a positive limit capped at ceiling.
func parseLimit(raw string, def, ceiling int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, failure.Validation("limit must be a positive integer")
	}
	if n > ceiling {
		n = ceiling
	}
	return n, nil
}
