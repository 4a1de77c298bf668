package validation

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/confdesk/confdesk/internal/models"
)

// DateLayout is the wire format for conference dates.
const DateLayout = "2006-01-02"

// ErrInvalidSort is returned for sort parameters outside the whitelists.
var ErrInvalidSort = errors.New("invalid sorting parameters")

var (
	sortFields     = map[string]bool{"date": true, "title": true}
	sortDirections = map[string]bool{"asc": true, "desc": true}
)

// SortParams validates listing sort parameters, applying the defaults
// (date ascending) for absent values.
func SortParams(field, direction string) (string, string, error) {
	if field == "" {
		field = "date"
	}
	if direction == "" {
		direction = "asc"
	}
	if !sortFields[field] || !sortDirections[direction] {
		return "", "", ErrInvalidSort
	}
	return field, direction, nil
}

// ConferenceData is the parsed result of a valid conference payload.
type ConferenceData struct {
	Title        string
	Description  string
	Date         time.Time
	Address      string
	Participants int
}

// Conference checks a submitted conference payload. On success the parsed
// values are returned; on failure the map carries one message per invalid
// field.
func Conference(input models.ConferenceInput, minParticipants int) (ConferenceData, map[string]string) {
	errs := map[string]string{}
	var data ConferenceData

	data.Title = strings.TrimSpace(input.Title)
	if data.Title == "" {
		errs["title"] = "The title field is required."
	}

	data.Description = strings.TrimSpace(input.Description)
	if data.Description == "" {
		errs["description"] = "The description field is required."
	}

	data.Address = strings.TrimSpace(input.Address)
	if data.Address == "" {
		errs["address"] = "The address field is required."
	}

	if strings.TrimSpace(input.Date) == "" {
		errs["date"] = "The date field is required."
	} else if date, err := time.ParseInLocation(DateLayout, strings.TrimSpace(input.Date), time.Local); err != nil {
		errs["date"] = "The date must be a valid date."
	} else if date.Before(today()) {
		errs["date"] = "The date must be today or later."
	} else {
		data.Date = date
	}

	if strings.TrimSpace(input.Participants) == "" {
		errs["participants"] = "The participants field is required."
	} else if n, err := strconv.Atoi(strings.TrimSpace(input.Participants)); err != nil {
		errs["participants"] = "The participants field must be a number."
	} else if n < minParticipants {
		errs["participants"] = "The participants field must be at least " + strconv.Itoa(minParticipants) + "."
	} else {
		data.Participants = n
	}

	if len(errs) > 0 {
		return ConferenceData{}, errs
	}
	return data, nil
}

// Login checks the login payload: both fields are required.
func Login(username, password string) map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(username) == "" {
		errs["username"] = "The username field is required."
	}
	if password == "" {
		errs["password"] = "The password field is required."
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
