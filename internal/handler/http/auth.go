package http

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/beck-00/financial-model-generator/pkg/errors"
	"github.com/beck-00/financial-model-generator/pkg/httputil"
	"github.com/beck-00/financial-model-generator/pkg/middleware"
	"github.com/beck-00/financial-model-generator/pkg/validator"

	"github.com/beck-00/financial-model-generator/internal/service"
)

// maxFormBytes caps form-encoded login bodies.
const maxFormBytes = 1 << 16

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for user registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the login body. The OAuth2 password form sends the email
// as "username". Only presence is checked; anything else that is wrong is an
// invalid credential.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=1024"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the JSON request body for refresh and logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,max=4096"`
}

// --- Handlers ---

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	user, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, user.PublicView())
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if isFormRequest(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseForm(); err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("invalid form body"), h.logger)
			return
		}
		req.Email = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
		if err := validator.Validate(req); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	} else if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	pair, err := h.service.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeTokenPair(w, pair)
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeTokenPair(w, pair)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.CurrentUser(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, user.PublicView())
}

// writeDecodeError turns a JSON syntax error into INVALID_INPUT and passes
// validation errors through.
func (h *AuthHandler) writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) || errors.Is(err, validator.ErrEmptyBody) {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
}

func writeTokenPair(w http.ResponseWriter, pair any) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	httputil.WriteData(w, http.StatusOK, pair)
}
