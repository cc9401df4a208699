package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/auth"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/logging"
)

type credentialReader interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type AuthHandler struct {
	accounts  credentialReader
	jwtSecret string
	jwtExpiry time.Duration
}

func NewAuthHandler(accounts credentialReader, jwtSecret string, jwtExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		accounts:  accounts,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.Email) == "" {
		errs = append(errs, FieldError{Field: "email", Message: "required"})
	}
	if r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "required"})
	}
	return errs
}

type loginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	Account   accountDTO `json:"account"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	acct, err := h.accounts.GetByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			RespondAppError(w, ErrInvalidCredentials, nil)
			return
		}
		RespondDomainError(w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)); err != nil {
		logging.FromContext(r.Context()).Info("login rejected", "user_id", acct.UserID)
		RespondAppError(w, ErrInvalidCredentials, nil)
		return
	}

	expiresAt := time.Now().Add(h.jwtExpiry).UTC()
	token, err := auth.GenerateToken(acct.UserID, acct.Email, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Truncate(time.Second),
		Account:   toAccountDTO(acct),
	})
}
