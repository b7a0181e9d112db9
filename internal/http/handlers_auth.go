package http

import (
	"net/http"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userInfo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

type loginResponse struct {
	Message string   `json:"message"`
	User    userInfo `json:"user"`
	Token   string   `json:"token"`
}

// handleLogin checks the credential shape and issues a token. This is
// single-user demo auth, any well-formed email and non-empty password is
// accepted.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email and password are required"})
		return
	}
	if !emailPattern.MatchString(req.Email) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid email format"})
		return
	}

	name, _, _ := strings.Cut(req.Email, "@")
	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful",
		User:    userInfo{Email: req.Email, Name: name, Role: "user"},
		Token:   s.tokens.Issue(req.Email),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// The auth middleware already verified the token, so it is present.
	token, _ := bearerToken(r)
	s.tokens.Revoke(token)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

type verifyResponse struct {
	Valid bool     `json:"valid"`
	User  userInfo `json:"user"`
}

func (s *Server) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	// The middleware accepted the token, re-verify only to recover the
	// subject it was issued for.
	token, _ := bearerToken(r)
	email, err := s.tokens.Verify(token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		Valid: true,
		User:  userInfo{Email: email, Role: "user"},
	})
}
