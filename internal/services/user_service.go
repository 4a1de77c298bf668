package services

import (
	"database/sql"

	"github.com/confdesk/confdesk/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Hash of an empty password, compared against when the username is
// unknown so both failure paths do a bcrypt round.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// UserServiceProvider defines the interface for the credential store.
type UserServiceProvider interface {
	GetByUsername(username string) (models.User, error)
	Authenticate(username, password string) (models.User, error)
}

// UserService provides credential lookup and verification.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

// GetByUsername retrieves a single user by username, including the password hash.
func (s *UserService) GetByUsername(username string) (models.User, error) {
	var user models.User
	row := s.db.QueryRow("SELECT id, username, password_hash, created_at FROM users WHERE username = ?", username)
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// Authenticate verifies a user's credentials. An unknown username and a
// wrong password return the same ErrInvalidCredentials.
func (s *UserService) Authenticate(username, password string) (models.User, error) {
	user, err := s.GetByUsername(username)
	if err != nil {
		// Burn a comparison anyway to keep the two failure paths close in cost.
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return models.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	// Don't hand the password hash back to the caller
	user.PasswordHash = ""
	return user, nil
}
