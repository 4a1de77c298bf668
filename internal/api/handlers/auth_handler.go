package handlers

import (
	"net/http"

	"github.com/confdesk/confdesk/internal/metrics"
	"github.com/confdesk/confdesk/internal/services"
	"github.com/confdesk/confdesk/internal/session"
	"github.com/confdesk/confdesk/internal/validation"
	"github.com/confdesk/confdesk/internal/web"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles the login and logout flow.
type AuthHandler struct {
	users    services.UserServiceProvider
	sessions *session.Manager
	renderer *web.Renderer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users services.UserServiceProvider, sessions *session.Manager, renderer *web.Renderer) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, renderer: renderer}
}

// ShowLogin renders the login form.
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	log.Info().Msg("Login form accessed by a user")

	h.renderer.Render(w, "login", web.Page{
		Title:     "Log in",
		Messages:  sess.Flash.Messages,
		Errors:    sess.Flash.Errors,
		Old:       sess.Flash.Old,
		CSRFToken: sess.Token,
		Username:  sess.Username,
		Data: struct{ Instructions string }{
			Instructions: "Enter your username and password to log in.",
		},
	})
}

// Login verifies credentials and authenticates the session. On success the
// session id and token are rotated before the principal is attached, so a
// fixed pre-login session id is useless afterwards.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	if errs := validation.Login(username, password); errs != nil {
		sess.FieldErrors(errs)
		sess.OldInput(map[string]string{"username": username})
		redirect(w, r, sess, "/login", http.StatusSeeOther)
		return
	}

	user, err := h.users.Authenticate(username, password)
	if err != nil {
		// Unknown user and wrong password are indistinguishable here.
		log.Warn().Str("username", username).Msg("Failed login attempt")
		metrics.LoginAttempts.WithLabelValues("failed").Inc()
		sess.FieldErrors(map[string]string{"username": "Invalid credentials."})
		sess.OldInput(map[string]string{"username": username})
		redirect(w, r, sess, "/login", http.StatusSeeOther)
		return
	}

	destination := sess.Flash.Intended
	if destination == "" {
		destination = "/"
	}

	if err := h.sessions.Renew(w, sess); err != nil {
		log.Error().Err(err).Msg("Failed to rotate session on login")
		sess.Error("Login failed, please try again.")
		redirect(w, r, sess, "/login", http.StatusSeeOther)
		return
	}
	if err := h.sessions.Login(sess, user); err != nil {
		log.Error().Err(err).Str("username", username).Msg("Failed to attach user to session")
		sess.Error("Login failed, please try again.")
		redirect(w, r, sess, "/login", http.StatusSeeOther)
		return
	}

	log.Info().Str("username", username).Msg("User authenticated successfully")
	metrics.LoginAttempts.WithLabelValues("ok").Inc()
	sess.Success("Welcome back!")
	redirect(w, r, sess, destination, http.StatusSeeOther)
}

// Logout clears the authenticated principal and invalidates the session.
// Calling it without being logged in is harmless.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	username := sess.Username
	if username == "" {
		username = "guest"
	}
	log.Info().Str("username", username).Msg("User logged out")

	if err := h.sessions.Reset(w, sess); err != nil {
		log.Error().Err(err).Msg("Failed to reset session on logout")
	}
	sess.Success("You have been logged out successfully.")
	redirect(w, r, sess, "/", http.StatusSeeOther)
}
