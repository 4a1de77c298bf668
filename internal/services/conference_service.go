package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/confdesk/confdesk/internal/models"
	"github.com/google/uuid"
)

// Columns the listing may be ordered by. Keys double as the public
// sortField values; values are the actual column names.
var sortColumns = map[string]string{
	"date":  "date",
	"title": "title",
}

// ConferenceServiceProvider defines the interface for the conference record store.
type ConferenceServiceProvider interface {
	List(sortField, sortDirection string, page, pageSize int) ([]models.Conference, int, error)
	Get(id string) (models.Conference, error)
	Create(title, description string, date time.Time, address string, participants int) (models.Conference, error)
	Update(id, title, description string, date time.Time, address string, participants int) (models.Conference, error)
	Delete(id string) error
}

// ConferenceService provides business logic for conference management.
type ConferenceService struct {
	db *sql.DB
}

// NewConferenceService creates a new ConferenceService.
func NewConferenceService(db *sql.DB) *ConferenceService {
	return &ConferenceService{db: db}
}

// List returns one page of conferences ordered by the given field and
// direction, plus the total number of records across all pages.
func (s *ConferenceService) List(sortField, sortDirection string, page, pageSize int) ([]models.Conference, int, error) {
	column, ok := sortColumns[sortField]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported sort field %q", sortField)
	}
	if sortDirection != "asc" && sortDirection != "desc" {
		return nil, 0, fmt.Errorf("unsupported sort direction %q", sortDirection)
	}
	if page < 1 {
		page = 1
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM conferences").Scan(&total); err != nil {
		return nil, 0, err
	}

	// column and direction both come from whitelists above, never from user input.
	query := fmt.Sprintf(
		"SELECT id, title, description, date, address, participants, created_at, updated_at FROM conferences ORDER BY %s %s LIMIT ? OFFSET ?",
		column, sortDirection)

	rows, err := s.db.Query(query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var conferences []models.Conference
	for rows.Next() {
		var c models.Conference
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Date, &c.Address, &c.Participants, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		conferences = append(conferences, c)
	}
	return conferences, total, rows.Err()
}

// Get retrieves a single conference by its ID.
func (s *ConferenceService) Get(id string) (models.Conference, error) {
	var c models.Conference
	row := s.db.QueryRow("SELECT id, title, description, date, address, participants, created_at, updated_at FROM conferences WHERE id = ?", id)
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Date, &c.Address, &c.Participants, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Conference{}, ErrNotFound
		}
		return models.Conference{}, err
	}
	return c, nil
}

// Create stores a new conference and returns it with its assigned ID.
func (s *ConferenceService) Create(title, description string, date time.Time, address string, participants int) (models.Conference, error) {
	conference := models.Conference{
		ID:           uuid.New().String(),
		Title:        title,
		Description:  description,
		Date:         date,
		Address:      address,
		Participants: participants,
	}

	stmt, err := s.db.Prepare("INSERT INTO conferences(id, title, description, date, address, participants) VALUES(?, ?, ?, ?, ?, ?)")
	if err != nil {
		return models.Conference{}, err
	}
	defer stmt.Close()

	_, err = stmt.Exec(conference.ID, conference.Title, conference.Description, conference.Date, conference.Address, conference.Participants)
	if err != nil {
		return models.Conference{}, err
	}
	return s.Get(conference.ID)
}

// Update applies a full payload to an existing conference in place.
func (s *ConferenceService) Update(id, title, description string, date time.Time, address string, participants int) (models.Conference, error) {
	stmt, err := s.db.Prepare("UPDATE conferences SET title = ?, description = ?, date = ?, address = ?, participants = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	if err != nil {
		return models.Conference{}, err
	}
	defer stmt.Close()

	res, err := stmt.Exec(title, description, date, address, participants, id)
	if err != nil {
		return models.Conference{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Conference{}, err
	}
	if affected == 0 {
		return models.Conference{}, ErrNotFound
	}
	return s.Get(id)
}

// Delete removes a conference. Deleting an unknown ID is an error, not a
// no-op, so a repeated delete surfaces as ErrNotFound.
func (s *ConferenceService) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM conferences WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
