package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/authgate/authgate/internal/httputil"
	"github.com/authgate/authgate/internal/logging"
)

// internalErrorMessage is the only text ever surfaced for storage/hash/token
// failures; detail stays in the server logs.
const internalErrorMessage = "Something went wrong. Please try again."

// Handler contains HTTP handlers for the authentication endpoints
type Handler struct {
	service         *Service
	rateLimiter     RateLimiter
	logger          *logging.Logger
	isProduction    bool
	sessionDuration time.Duration
	signinURL       string
}

func NewHandler(service *Service, rateLimiter RateLimiter, logger *logging.Logger, isProduction bool, sessionDuration time.Duration, signinURL string) *Handler {
	return &Handler{
		service:         service,
		rateLimiter:     rateLimiter,
		logger:          logger,
		isProduction:    isProduction,
		sessionDuration: sessionDuration,
		signinURL:       signinURL,
	}
}

// credentialsRequest covers both entry points; sign-in ignores the name fields.
type credentialsRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type sessionResponse struct {
	User *SessionClaims `json:"user"`
}

// SignUp handles account creation form submissions.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limitExceeded(w, r, "signup") {
		return
	}

	req, err := decodeCredentials(r)
	if err != nil {
		logger.Warn("invalid sign-up request body", "error", err.Error())
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	newUser, token, err := h.service.SignUp(r.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			logger.Warn("sign-up failed: validation error", "field", ve.Field)
			httputil.RespondError(w, ve.Message, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrDuplicateAccount) {
			logger.Warn("sign-up failed: email already registered")
			httputil.RespondError(w, ErrDuplicateAccount.Error(), http.StatusConflict)
			return
		}
		logger.Error("sign-up failed: internal error", "error", err.Error())
		httputil.RespondError(w, internalErrorMessage, http.StatusInternalServerError)
		return
	}

	logger.Info("user signed up", "user_id", newUser.ID)

	SetSessionCookie(w, token, h.isProduction, h.sessionDuration)
	httputil.RespondJSON(w, successResponse{Success: true}, http.StatusCreated)
}

// SignIn handles login form submissions.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limitExceeded(w, r, "signin") {
		return
	}

	req, err := decodeCredentials(r)
	if err != nil {
		logger.Warn("invalid sign-in request body", "error", err.Error())
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	signedInUser, token, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			logger.Warn("sign-in failed: validation error", "field", ve.Field)
			httputil.RespondError(w, ve.Message, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("sign-in failed: invalid credentials")
			httputil.RespondError(w, ErrInvalidCredentials.Error(), http.StatusUnauthorized)
			return
		}
		logger.Error("sign-in failed: internal error", "error", err.Error())
		httputil.RespondError(w, internalErrorMessage, http.StatusInternalServerError)
		return
	}

	logger.Info("user signed in", "user_id", signedInUser.ID)

	SetSessionCookie(w, token, h.isProduction, h.sessionDuration)
	httputil.RespondJSON(w, successResponse{Success: true}, http.StatusOK)
}

// SignOut clears the session cookie and sends the browser back to the sign-in
// page. It has no failure mode; signing out without a session is a no-op.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ClearSessionCookie(w)
	logger.Info("user signed out")

	http.Redirect(w, r, h.signinURL, http.StatusSeeOther)
}

// Session reports the current session, if any. An absent or invalid token is
// not an error; the client gets {"user": null} and decides what to do.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	token, err := GetSessionToken(r)
	if err != nil {
		httputil.RespondJSON(w, sessionResponse{User: nil}, http.StatusOK)
		return
	}

	claims := h.service.CurrentSession(token)
	httputil.RespondJSON(w, sessionResponse{User: claims}, http.StatusOK)
}

// limitExceeded applies the per-IP rate limit for an endpoint. Limiter errors
// fail open: auth must keep working when redis is down.
func (h *Handler) limitExceeded(w http.ResponseWriter, r *http.Request, purpose string) bool {
	if h.rateLimiter == nil {
		return false
	}

	logger := logging.GetLoggerFromContext(r.Context())
	ip := getClientIP(r)

	exceeded, err := h.rateLimiter.Check(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("rate limit exceeded", "ip", ip, "purpose", purpose)
		httputil.RespondError(w, "too many requests, please try again later", http.StatusTooManyRequests)
		return true
	}

	if err := h.rateLimiter.Record(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record rate limit request", "error", err.Error())
	}

	return false
}

// decodeCredentials reads the request as either a JSON body or an HTML form
// submission, depending on Content-Type.
func decodeCredentials(r *http.Request) (credentialsRequest, error) {
	contentType := r.Header.Get("Content-Type")

	switch {
	case strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			return credentialsRequest{}, err
		}
	case strings.HasPrefix(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return credentialsRequest{}, err
		}
	default:
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return credentialsRequest{}, err
		}
		return req, nil
	}

	return credentialsRequest{
		FirstName: r.PostFormValue("firstName"),
		LastName:  r.PostFormValue("lastName"),
		Email:     r.PostFormValue("email"),
		Password:  r.PostFormValue("password"),
	}, nil
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ips := strings.Split(xff, ","); len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr format is "IP:port", extract just the IP
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
