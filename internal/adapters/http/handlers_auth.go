package web

import (
	"errors"
	"net/http"

	"clubhouse/internal/adapters/http/middleware"
	"clubhouse/internal/application/orchestrators"
	domainAccount "clubhouse/internal/domain/account"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// handleLogin authenticates and starts a session (POST /login).
// POST: session cookie set on success; 401 for bad credentials, 423 while locked
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, orchestrators.LoginDeps{
		AccountStore: s.deps.Stores.AccountStore,
		AuditStore:   s.deps.Stores.AuditStore,
		Now:          s.deps.Now,
		GenerateID:   s.deps.GenerateID,
	})
	switch {
	case errors.Is(err, orchestrators.ErrInvalidCredentials):
		middleware.WriteJSONError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
		return
	case errors.Is(err, orchestrators.ErrAccountLocked):
		middleware.WriteJSONError(w, http.StatusLocked, "account_locked", err.Error())
		return
	case err != nil:
		internalError(w, err)
		return
	}

	token, err := s.sessions.Create(result.AccountID, result.Email, result.Role)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token, s.sessions.TTL(), s.cfg.SecureCookies)
	middleware.WriteJSON(w, http.StatusOK, accountResponse{
		AccountID: result.AccountID,
		Email:     result.Email,
		Role:      result.Role,
	})
}

// handleLogout ends the session (POST /logout).
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		s.sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w, s.cfg.SecureCookies)
	w.WriteHeader(http.StatusNoContent)
}

type createAccountRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// handleSignup creates an athlete account (POST /signup).
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Role != "" && req.Role != domainAccount.RoleAthlete {
		middleware.WriteJSONError(w, http.StatusForbidden, "authorization", "self sign-up creates athlete accounts only")
		return
	}
	s.createAccount(w, r, req)
}

// handleAdminCreateAccount creates an account of any role (POST /api/admin/accounts).
func (s *Server) handleAdminCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.createAccount(w, r, req)
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request, req createAccountRequest) {
	id, err := orchestrators.ExecuteCreateAccount(r.Context(), orchestrators.CreateAccountInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        req.Role,
	}, orchestrators.CreateAccountDeps{
		AccountStore: s.deps.Stores.AccountStore,
		Now:          s.deps.Now,
		GenerateID:   s.deps.GenerateID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	acct, err := s.deps.Stores.AccountStore.GetByID(r.Context(), id)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, accountResponse{AccountID: acct.ID, Email: acct.Email, Role: acct.Role})
}
