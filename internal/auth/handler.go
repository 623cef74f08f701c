package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/avelarde/devtrack/internal/httputil"
	"github.com/avelarde/devtrack/internal/logging"
	"github.com/avelarde/devtrack/internal/ratelimit"
	"github.com/avelarde/devtrack/internal/render"
	"github.com/avelarde/devtrack/internal/session"
	"github.com/avelarde/devtrack/internal/user"
)

// User-facing messages. Validation and conflict branches re-render the form
// that produced them; internal failures degrade to the same form with a
// generic apology instead of an error page.
const (
	msgAllFieldsRequired  = "All fields are required."
	msgInvalidEmail       = "The email address is not valid."
	msgPasswordTooShort   = "The password must be at least 8 characters."
	msgEmailTaken         = "An account with that email already exists."
	msgUsernameTaken      = "That username is already taken."
	msgInvalidCredentials = "Invalid email or password."
	msgMustVerify         = "Your account is not verified yet. Check your inbox or resend the verification email."
	msgRegisterFailed     = "We could not create your account right now. Please try again later."
	msgResendFailed       = "We could not resend the email right now. Please try again later."
	msgCheckYourEmail     = "Account created. Check your email to verify your account."
	msgResendAccepted     = "If the account exists, you will receive a verification email shortly."
	msgAlreadyVerified    = "Your email is already verified. You can log in."
	msgTokenInvalid       = "The verification link is invalid or has expired."
	msgTokenRequired      = "The verification link is incomplete."
	msgTooManyRequests    = "Too many requests. Please try again later."
	msgPasswordMismatch   = "The new passwords do not match."
	msgWrongPassword      = "Your current password is incorrect."
	msgPasswordChanged    = "Your password has been updated."
	msgGenericError       = "Something went wrong on our side. Please try again later."
)

// loginView is the data object for the login template.
type loginView struct {
	Error      string
	Info       string
	Email      string
	ShowResend bool
}

// registerView is the data object for the registration template.
type registerView struct {
	Error    string
	Info     string
	Username string
	Email    string
}

// profileView is the data object for the profile template.
type profileView struct {
	User    string
	Error   string
	Success string
}

// Handler contains the HTTP handlers for the authentication flows.
type Handler struct {
	service       *Service
	sessions      *session.Store
	limiter       *ratelimit.Limiter
	renderer      *render.Renderer
	cookieName    string
	sessionTTL    time.Duration
	secureCookies bool
}

func NewHandler(
	service *Service,
	sessions *session.Store,
	limiter *ratelimit.Limiter,
	renderer *render.Renderer,
	cookieName string,
	sessionTTL time.Duration,
	secureCookies bool,
) *Handler {
	return &Handler{
		service:       service,
		sessions:      sessions,
		limiter:       limiter,
		renderer:      renderer,
		cookieName:    cookieName,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
	}
}

// ShowLogin renders the login form.
func (h *Handler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, "login", loginView{})
}

// Login authenticates the posted credentials and establishes a session.
// "No such user" and "wrong password" return the identical message; only the
// unverified branch differs, to surface the resend affordance.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if h.rateLimited(w, r, "login") {
		return
	}

	sessionID, err := h.service.Login(r.Context(), email, password)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccountNotVerified):
			logger.Warn("login rejected: account not verified")
			h.renderer.Render(w, r, http.StatusForbidden, "login", loginView{
				Error:      msgMustVerify,
				Email:      email,
				ShowResend: true,
			})
		case errors.Is(err, ErrInvalidCredentials):
			logger.Warn("login rejected: invalid credentials")
			h.renderer.Render(w, r, http.StatusUnauthorized, "login", loginView{
				Error: msgInvalidCredentials,
				Email: email,
			})
		default:
			logger.Error("login failed", "error", err.Error())
			h.renderer.Error(w, r, http.StatusInternalServerError, httputil.CodeInternalError, msgGenericError)
		}
		return
	}

	logger.Info("user logged in")
	session.SetCookie(w, h.cookieName, sessionID, h.sessionTTL, h.secureCookies)
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// Logout destroys the session unconditionally and sends the browser back to
// the login page. A missing or stale cookie is not an error.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	if sessionID := session.FromRequest(r, h.cookieName); sessionID != "" {
		if err := h.sessions.Destroy(r.Context(), sessionID); err != nil {
			logger.Warn("failed to destroy session", "error", err.Error())
		}
	}

	session.ClearCookie(w, h.cookieName, h.secureCookies)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ShowRegister renders the registration form.
func (h *Handler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, "register", registerView{})
}

// Register creates an unverified account. Every failure, including an
// unexpected persistence error, re-renders the registration form so the user
// never lands on a bare error page mid-signup.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if h.rateLimited(w, r, "register") {
		return
	}

	form := registerView{Username: username, Email: email}

	_, err := h.service.Register(r.Context(), username, email, password)
	if err != nil {
		switch {
		case errors.Is(err, ErrAllFieldsRequired):
			form.Error = msgAllFieldsRequired
		case errors.Is(err, ErrInvalidEmailFormat):
			form.Error = msgInvalidEmail
		case errors.Is(err, ErrPasswordTooShort):
			form.Error = msgPasswordTooShort
		case errors.Is(err, user.ErrDuplicateEmail):
			form.Error = msgEmailTaken
		case errors.Is(err, user.ErrDuplicateUsername):
			form.Error = msgUsernameTaken
		default:
			logger.Error("registration failed", "error", err.Error())
			form.Error = msgRegisterFailed
		}
		h.renderer.Render(w, r, http.StatusOK, "register", form)
		return
	}

	logger.Info("user registered", "email", email)

	// The outcome reads the same whether or not the verification mail could
	// be delivered; deliverability is not the registrant's business.
	h.renderer.Render(w, r, http.StatusOK, "login", loginView{
		Info:  msgCheckYourEmail,
		Email: email,
	})
}

// Verify redeems the verification token from the emailed link.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	token := r.URL.Query().Get("token")

	verified, err := h.service.Verify(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenRequired):
			logger.Warn("verification rejected: token missing")
			h.renderer.Error(w, r, http.StatusBadRequest, httputil.CodeValidationError, msgTokenRequired)
		case errors.Is(err, ErrTokenInvalidOrExpired):
			logger.Warn("verification rejected: token invalid or expired")
			h.renderer.Error(w, r, http.StatusBadRequest, httputil.CodeTokenInvalid, msgTokenInvalid)
		default:
			logger.Error("verification failed", "error", err.Error())
			h.renderer.Error(w, r, http.StatusInternalServerError, httputil.CodeInternalError, msgGenericError)
		}
		return
	}

	logger.Info("email verified", "user_id", verified.ID)

	h.renderer.Render(w, r, http.StatusOK, "verify_success", struct {
		Username string
	}{Username: verified.Username})
}

// ResendVerification re-issues a verification token. A non-existent address
// and a successful resend render the exact same message; only an
// already-verified account gets a distinct answer.
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	email := strings.TrimSpace(r.FormValue("email"))

	if h.rateLimited(w, r, "resend") {
		return
	}
	if h.emailOnCooldown(w, r, email) {
		return
	}

	result, err := h.service.ResendVerification(r.Context(), email)
	if err != nil {
		logger.Error("resend verification failed", "error", err.Error())
		h.renderer.Render(w, r, http.StatusOK, "register", registerView{
			Error: msgResendFailed,
			Email: email,
		})
		return
	}

	info := msgResendAccepted
	if result == ResendAlreadyVerified {
		info = msgAlreadyVerified
	}
	h.renderer.Render(w, r, http.StatusOK, "login", loginView{
		Info:  info,
		Email: email,
	})
}

// ShowProfile renders the profile page with the change-password form.
func (h *Handler) ShowProfile(w http.ResponseWriter, r *http.Request) {
	username, _ := UsernameFromContext(r.Context())
	h.renderer.Render(w, r, http.StatusOK, "profile", profileView{User: username})
}

// ChangePassword rotates the password of the authenticated user.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	username, _ := UsernameFromContext(r.Context())

	form := profileView{User: username}

	err := h.service.ChangePassword(
		r.Context(),
		userID,
		r.FormValue("current_password"),
		r.FormValue("new_password"),
		r.FormValue("confirm_password"),
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrAllFieldsRequired):
			form.Error = msgAllFieldsRequired
		case errors.Is(err, ErrPasswordMismatch):
			form.Error = msgPasswordMismatch
		case errors.Is(err, ErrPasswordTooShort):
			form.Error = msgPasswordTooShort
		case errors.Is(err, ErrWrongPassword):
			form.Error = msgWrongPassword
		default:
			logger.Error("change password failed", "error", err.Error())
			h.renderer.Error(w, r, http.StatusInternalServerError, httputil.CodeInternalError, msgGenericError)
			return
		}
		h.renderer.Render(w, r, http.StatusOK, "profile", form)
		return
	}

	logger.Info("password changed", "user_id", userID)

	form.Success = msgPasswordChanged
	h.renderer.Render(w, r, http.StatusOK, "profile", form)
}

// rateLimited checks and records the request against the purpose's IP window,
// answering true when the caller should stop. Limiter errors never block a
// legitimate request.
func (h *Handler) rateLimited(w http.ResponseWriter, r *http.Request, purpose string) bool {
	logger := logging.FromContext(r.Context())
	ip := clientIP(r)

	exceeded, err := h.limiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		h.renderer.Error(w, r, http.StatusTooManyRequests, httputil.CodeTooManyRequests, msgTooManyRequests)
		return true
	}

	if err := h.limiter.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	return false
}

// emailOnCooldown enforces the per-address resend cooldown.
func (h *Handler) emailOnCooldown(w http.ResponseWriter, r *http.Request, email string) bool {
	logger := logging.FromContext(r.Context())

	onCooldown, err := h.limiter.CheckEmailCooldown(r.Context(), email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("email on cooldown")
		h.renderer.Error(w, r, http.StatusTooManyRequests, httputil.CodeTooManyRequests, msgTooManyRequests)
		return true
	}

	if err := h.limiter.SetEmailCooldown(r.Context(), email); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}

	return false
}

// clientIP extracts the client IP address from the request.
func clientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
