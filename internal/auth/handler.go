package auth

import (
	"encoding/json"
	"net/http"

	"inkwell/middleware"
	"inkwell/pkg/httperr"
	"inkwell/pkg/logger"
)

type AuthHandler struct {
	Service *AuthService
}

func NewAuthHandler(service *AuthService) *AuthHandler {
	return &AuthHandler{Service: service}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, httperr.Invalid("invalid request body"))
		return
	}

	token, err := h.Service.Signup(req)
	if err != nil {
		logger.Sugar.Infof("Signup failed for %s: %v", req.Email, err)
		httperr.Write(w, err)
		return
	}

	SetAuthCookie(w, token, h.Service.TokenTTL)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "signed up successfully"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, httperr.Invalid("invalid request body"))
		return
	}

	token, err := h.Service.Login(req)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	SetAuthCookie(w, token, h.Service.TokenTTL)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "logged in successfully"})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ClearAuthCookie(w)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "logged out successfully"})
}

// Check lets the frontend verify its session; it runs behind the auth
// middleware, so reaching it means the token was valid.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"authenticated": true,
		"principal":     middleware.Principal(r),
	})
}
