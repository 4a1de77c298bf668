package session

import (
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/confdesk/confdesk/internal/models"
	"github.com/google/uuid"
)

// CookieName is the name of the session cookie.
const CookieName = "confdesk_session"

var alpha = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKMNOPQRSTUVWXYZ0123456789")

func randomString(n int) string {
	bb := make([]byte, n)
	if x, err := rand.Reader.Read(bb); err != nil || x != n {
		return ""
	}
	for i, b := range bb {
		bb[i] = byte(alpha[int(b)%len(alpha)])
	}
	return string(bb)
}

// Session is the per-request view of one stored session. Flash holds the
// one-shot state consumed from the previous request; anything staged via
// the setter methods below is written back on Flush and delivered to the
// next request only.
type Session struct {
	models.Session

	out models.FlashData
	mgr *Manager
}

// Manager loads, rotates and persists cookie-backed sessions.
type Manager struct {
	db       *sql.DB
	lifetime time.Duration
	secure   bool
}

// NewManager creates a session manager over the given database.
func NewManager(db *sql.DB, lifetime time.Duration, secure bool) *Manager {
	return &Manager{db: db, lifetime: lifetime, secure: secure}
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.lifetime.Seconds()),
	})
}

func (m *Manager) insert(s *models.Session) error {
	flash, err := json.Marshal(s.Flash)
	if err != nil {
		return err
	}
	_, err = m.db.Exec(
		"INSERT INTO sessions(id, user_id, username, token, flash_json, expires_at) VALUES(?, ?, ?, ?, ?, ?)",
		s.ID, s.UserID, s.Username, s.Token, string(flash), s.ExpiresAt)
	return err
}

func (m *Manager) fetch(id string) (*models.Session, error) {
	var s models.Session
	var flashJSON string
	row := m.db.QueryRow("SELECT id, user_id, username, token, flash_json, created_at, expires_at FROM sessions WHERE id = ?", id)
	if err := row.Scan(&s.ID, &s.UserID, &s.Username, &s.Token, &flashJSON, &s.CreatedAt, &s.ExpiresAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(flashJSON), &s.Flash); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load returns the session for the inbound request, creating a fresh
// anonymous one when the cookie is missing, unknown or expired. Flash
// state is read-once: it is consumed here and cleared in storage.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if c, err := r.Cookie(CookieName); err == nil {
		s, err := m.fetch(c.Value)
		if err == nil && time.Now().Before(s.ExpiresAt) {
			if !s.Flash.Empty() {
				// Banners, errors and old input are one-shot; the intended
				// URL has to survive the login form round-trip.
				kept, err := json.Marshal(models.FlashData{Intended: s.Flash.Intended})
				if err != nil {
					return nil, err
				}
				if _, err := m.db.Exec("UPDATE sessions SET flash_json = ? WHERE id = ?", string(kept), s.ID); err != nil {
					return nil, err
				}
			}
			return &Session{Session: *s, mgr: m}, nil
		}
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
	}
	return m.create(w, nil, "")
}

func (m *Manager) create(w http.ResponseWriter, userID *string, username string) (*Session, error) {
	s := models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Username:  username,
		Token:     randomString(40),
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(m.lifetime),
	}
	if err := m.insert(&s); err != nil {
		return nil, err
	}
	m.setCookie(w, s.ID)
	return &Session{Session: s, mgr: m}, nil
}

// Renew replaces the session id and anti-forgery token while keeping the
// authenticated principal. Run on successful login so a pre-login session
// id fixed by an attacker stops working.
func (m *Manager) Renew(w http.ResponseWriter, s *Session) error {
	return m.rotate(w, s, s.UserID, s.Username)
}

// Reset discards everything the session accumulated: the principal is
// cleared and a new id and token are issued. Run on logout. Safe to call
// on a session that was never authenticated.
func (m *Manager) Reset(w http.ResponseWriter, s *Session) error {
	return m.rotate(w, s, nil, "")
}

func (m *Manager) rotate(w http.ResponseWriter, s *Session, userID *string, username string) error {
	if _, err := m.db.Exec("DELETE FROM sessions WHERE id = ?", s.ID); err != nil {
		return err
	}
	fresh, err := m.create(w, userID, username)
	if err != nil {
		return err
	}
	out := s.out
	*s = *fresh
	s.out = out
	return nil
}

// Login attaches the authenticated principal to the session.
func (m *Manager) Login(s *Session, user models.User) error {
	id := user.ID
	s.UserID = &id
	s.Username = user.Username
	_, err := m.db.Exec("UPDATE sessions SET user_id = ?, username = ? WHERE id = ?", s.UserID, s.Username, s.ID)
	return err
}

// PurgeExpired deletes sessions past their expiry and reports how many
// were removed.
func (m *Manager) PurgeExpired() (int64, error) {
	res, err := m.db.Exec("DELETE FROM sessions WHERE expires_at <= ?", time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// VerifyToken checks a submitted anti-forgery token against the session's.
func (s *Session) VerifyToken(token string) bool {
	return token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.Token)) == 1
}

// Success stages a success banner for the next request.
func (s *Session) Success(msg string) { s.flashMessage("success", msg) }

// Error stages an error banner for the next request.
func (s *Session) Error(msg string) { s.flashMessage("error", msg) }

func (s *Session) flashMessage(key, msg string) {
	if s.out.Messages == nil {
		s.out.Messages = map[string]string{}
	}
	s.out.Messages[key] = msg
}

// FieldErrors stages per-field validation messages for the next request.
func (s *Session) FieldErrors(errs map[string]string) {
	s.out.Errors = errs
}

// OldInput stages submitted form values so the next render can re-populate
// the form. Never put a password in here.
func (s *Session) OldInput(old map[string]string) {
	s.out.Old = old
}

// SetIntended remembers the URL an anonymous client was trying to reach.
func (s *Session) SetIntended(url string) {
	s.out.Intended = url
}

// Flush persists everything staged on this session. Call before redirecting.
func (s *Session) Flush() error {
	if s.out.Empty() {
		return nil
	}
	// The intended URL survives until login unless overwritten.
	if s.out.Intended == "" {
		s.out.Intended = s.Flash.Intended
	}
	flash, err := json.Marshal(s.out)
	if err != nil {
		return err
	}
	_, err = s.mgr.db.Exec("UPDATE sessions SET flash_json = ? WHERE id = ?", string(flash), s.ID)
	return err
}
