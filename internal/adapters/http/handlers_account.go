package web

import (
	"net/http"
	"time"

	"clubhouse/internal/adapters/http/middleware"
	accountStore "clubhouse/internal/adapters/storage/account"
	"clubhouse/internal/application/listutil"
	"clubhouse/internal/application/orchestrators"
	domainAccount "clubhouse/internal/domain/account"
	"clubhouse/internal/domain/failure"
)

type accountView struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	DisplayName      string    `json:"display_name,omitempty"`
	Role             string    `json:"role"`
	MembershipStatus string    `json:"membership_status"`
	CreatedAt        time.Time `json:"created_at"`
}

func newAccountView(a domainAccount.Account) accountView {
	return accountView{
		ID:               a.ID,
		Email:            a.Email,
		DisplayName:      a.DisplayName,
		Role:             a.Role,
		MembershipStatus: a.MembershipStatus,
		CreatedAt:        a.CreatedAt,
	}
}

type accountListResponse struct {
	Accounts []accountView `json:"accounts"`
	listutil.PageInfo
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// handleGetAccount returns the caller's account (GET /api/account).
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	acct, err := s.deps.Stores.AccountStore.GetByID(r.Context(), sess.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, newAccountView(acct))
}

// handleChangePassword replaces the caller's password (POST /api/account/password).
// POST: other sessions stay valid until they expire
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	var req changePasswordRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
		AccountID:       sess.AccountID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}, orchestrators.ChangePasswordDeps{
		Tx:           s.deps.Tx,
		AccountStore: s.deps.Stores.AccountStore,
		AuditStore:   s.deps.Stores.AuditStore,
		Now:          s.deps.Now,
		GenerateID:   s.deps.GenerateID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAdminListAccounts pages through accounts (GET /api/admin/accounts).
// Query: q, role, sort (email|created_at), dir, page, per_page.
func (s *Server) handleAdminListAccounts(w http.ResponseWriter, r *http.Request) {
	params := listutil.Parse(r.URL.Query(), listutil.Options{SortColumns: accountStore.SortColumns, Filters: []string{"role"}})
	role := params.Filters["role"]
	if role != "" && !domainAccount.IsValidRole(role) {
		writeError(w, &failure.Error{Kind: failure.ErrValidation, Message: "unknown role", Field: "role"})
		return
	}
	filter := accountStore.ListFilter{
		Role:   role,
		Search: params.Search,
		Sort:   params.Sort,
		Desc:   params.Desc,
	}

	total, err := s.deps.Stores.AccountStore.CountMatching(r.Context(), filter)
	if err != nil {
		internalError(w, err)
		return
	}
	page := listutil.NewPageInfo(params.Page, params.PerPage, total)
	filter.Limit = page.PerPage
	filter.Offset = page.Offset()

	accts, err := s.deps.Stores.AccountStore.List(r.Context(), filter)
	if err != nil {
		internalError(w, err)
		return
	}
	resp := accountListResponse{Accounts: make([]accountView, 0, len(accts)), PageInfo: page}
	for _, a := range accts {
		resp.Accounts = append(resp.Accounts, newAccountView(a))
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}
