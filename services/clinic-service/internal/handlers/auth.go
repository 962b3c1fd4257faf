package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/auth"
	"github.com/md-rashed-zaman/clinicbook/libs/httpx"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/model"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	// bcrypt refuses to hash anything longer.
	maxPasswordLength = 72
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9 +()-]{8,20}$`)
)

// UserStore is the account persistence AuthHandler needs.
type UserStore interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
}

type AuthHandler struct {
	users    UserStore
	secret   string
	tokenTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewAuthHandler(users UserStore, secret string, tokenTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		secret:   secret,
		tokenTTL: tokenTTL,
		logger:   logger,
		now:      time.Now,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int64        `json:"expires_in"`
	User      userResponse `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteDecodeError(w, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)

	if msg := validateRegistration(req); msg != "" {
		httpx.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		writeError(w, r, h.logger, "hash password", err)
		return
	}

	user, err := h.users.Create(r.Context(), model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		Role:         model.RoleClient,
	})
	if err != nil {
		if errors.Is(err, model.ErrDuplicate) {
			httpx.WriteError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, r, h.logger, "create user", err)
		return
	}

	h.logger.Info("user registered", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "user registered successfully",
		"user":    toUserResponse(user),
	})
}

func validateRegistration(req registerRequest) string {
	switch {
	case req.Name == "" || req.Email == "" || req.Password == "":
		return "name, email and password are required"
	case !emailPattern.MatchString(req.Email):
		return "invalid email format"
	case len(req.Password) < minPasswordLength:
		return "password must be at least 6 characters"
	case len(req.Password) > maxPasswordLength:
		return "password must be at most 72 bytes"
	case req.Phone != "" && !phonePattern.MatchString(req.Phone):
		return "invalid phone format"
	default:
		return ""
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteDecodeError(w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, h.logger, "lookup user", err)
		return
	}
	if err := verifyPassword(user.PasswordHash, req.Password); err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	claims := auth.NewClaims(strconv.FormatInt(user.ID, 10), user.Email, user.Role, h.now(), h.tokenTTL)
	token, err := auth.SignHS256(claims, h.secret)
	if err != nil {
		writeError(w, r, h.logger, "sign token", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Message:   "login successful",
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(h.tokenTTL / time.Second),
		User:      toUserResponse(user),
	})
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	user, err := h.users.GetByID(r.Context(), actor.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, r, h.logger, "load profile", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// HashPassword is exported for the admin bootstrap in main. It applies the
// same length rules as registration.
func HashPassword(password string) (string, error) {
	switch {
	case len(password) < minPasswordLength:
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	case len(password) > maxPasswordLength:
		return "", fmt.Errorf("password must be at most %d bytes", maxPasswordLength)
	}
	return hashPassword(password)
}
