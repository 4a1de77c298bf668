package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/confdesk/confdesk/internal/metrics"
	"github.com/confdesk/confdesk/internal/models"
	"github.com/confdesk/confdesk/internal/services"
	"github.com/confdesk/confdesk/internal/session"
	"github.com/confdesk/confdesk/internal/validation"
	"github.com/confdesk/confdesk/internal/web"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const pageSize = 10

// ConferenceHandler handles HTTP requests for conference management.
type ConferenceHandler struct {
	service         services.ConferenceServiceProvider
	renderer        *web.Renderer
	minParticipants int
}

// NewConferenceHandler creates a new ConferenceHandler.
func NewConferenceHandler(service services.ConferenceServiceProvider, renderer *web.Renderer, minParticipants int) *ConferenceHandler {
	return &ConferenceHandler{service: service, renderer: renderer, minParticipants: minParticipants}
}

type listData struct {
	Conferences   []models.Conference
	Total         int
	SortField     string
	SortDirection string
	NextDirection string
	Page          int
	PrevPage      int
	NextPage      int
	TotalPages    int
}

type editData struct {
	Conference models.Conference
	LastEdited time.Time
}

// Index renders the paginated conference listing.
func (h *ConferenceHandler) Index(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	log.Info().Msg("Fetching all conferences for display")

	sortField, sortDirection, err := validation.SortParams(r.URL.Query().Get("sortField"), r.URL.Query().Get("sortDirection"))
	if err != nil {
		log.Warn().
			Str("sortField", r.URL.Query().Get("sortField")).
			Str("sortDirection", r.URL.Query().Get("sortDirection")).
			Msg("Invalid sorting parameters")
		sess.Error("Invalid sorting parameters.")
		redirect(w, r, sess, "/conferences", http.StatusFound)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	conferences, total, listErr := h.service.List(sortField, sortDirection, page, pageSize)
	if listErr != nil {
		log.Error().Err(listErr).Msg("Failed to fetch conferences")
		metrics.ConferenceOps.WithLabelValues("list", "error").Inc()
	} else {
		log.Info().Int("total", total).Msg("Total conferences retrieved")
		metrics.ConferenceOps.WithLabelValues("list", "ok").Inc()
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	nextDirection := "asc"
	if sortDirection == "asc" {
		nextDirection = "desc"
	}

	view := h.page(sess, "Conferences", listData{
		Conferences:   conferences,
		Total:         total,
		SortField:     sortField,
		SortDirection: sortDirection,
		NextDirection: nextDirection,
		Page:          page,
		PrevPage:      page - 1,
		NextPage:      page + 1,
		TotalPages:    totalPages,
	})
	if listErr != nil {
		view.Messages = map[string]string{"error": "Failed to load conferences."}
	}
	h.renderer.Render(w, "index", view)
}

// New renders the conference creation form.
func (h *ConferenceHandler) New(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	log.Info().Msg("Loading the conference creation form")

	h.render(w, sess, "create", "New conference", struct{ Instructions string }{
		Instructions: "Please ensure all required fields are filled correctly.",
	})
}

// Create validates and stores a new conference, then redirects to the listing.
func (h *ConferenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	input := conferenceInput(r)

	data, errs := validation.Conference(input, h.minParticipants)
	if errs != nil {
		metrics.ConferenceOps.WithLabelValues("create", "validation_failed").Inc()
		sess.FieldErrors(errs)
		sess.OldInput(oldInput(input))
		redirect(w, r, sess, "/conferences/create", http.StatusSeeOther)
		return
	}

	conference, err := h.service.Create(data.Title, data.Description, data.Date, data.Address, data.Participants)
	if err != nil {
		log.Error().Err(err).Msg("Error creating conference")
		metrics.ConferenceOps.WithLabelValues("create", "error").Inc()
		sess.Error("Failed to create conference.")
		sess.OldInput(oldInput(input))
		redirect(w, r, sess, "/conferences/create", http.StatusSeeOther)
		return
	}

	log.Info().Str("conference_id", conference.ID).Msg("Conference created successfully")
	metrics.ConferenceOps.WithLabelValues("create", "ok").Inc()
	sess.Success("Conference created successfully!")
	redirect(w, r, sess, "/conferences", http.StatusSeeOther)
}

// Edit renders the pre-populated edit form for an existing conference.
func (h *ConferenceHandler) Edit(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id := chi.URLParam(r, "id")

	conference, err := h.service.Get(id)
	if err != nil {
		log.Warn().Err(err).Str("conference_id", id).Msg("Conference to edit not found")
		sess.Error("Conference not found.")
		redirect(w, r, sess, "/conferences", http.StatusFound)
		return
	}

	log.Info().Str("conference_id", id).Msg("Editing conference")

	page := h.page(sess, "Edit conference", editData{Conference: conference, LastEdited: time.Now()})
	// Prefer re-submitted input over stored values after a failed update.
	if len(page.Old) == 0 {
		page.Old = map[string]string{
			"title":        conference.Title,
			"description":  conference.Description,
			"date":         conference.Date.Format(validation.DateLayout),
			"address":      conference.Address,
			"participants": strconv.Itoa(conference.Participants),
		}
	}
	h.renderer.Render(w, "edit", page)
}

// Update re-validates a full payload and applies it to an existing conference.
func (h *ConferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id := chi.URLParam(r, "id")
	input := conferenceInput(r)
	formURL := "/conferences/" + id + "/edit"

	log.Info().Str("conference_id", id).Msg("Updating conference")

	data, errs := validation.Conference(input, h.minParticipants)
	if errs != nil {
		metrics.ConferenceOps.WithLabelValues("update", "validation_failed").Inc()
		sess.FieldErrors(errs)
		sess.OldInput(oldInput(input))
		redirect(w, r, sess, formURL, http.StatusSeeOther)
		return
	}

	if _, err := h.service.Update(id, data.Title, data.Description, data.Date, data.Address, data.Participants); err != nil {
		log.Error().Err(err).Str("conference_id", id).Msg("Error updating conference")
		outcome := "error"
		if errors.Is(err, services.ErrNotFound) {
			outcome = "not_found"
		}
		metrics.ConferenceOps.WithLabelValues("update", outcome).Inc()
		sess.Error("Failed to update conference.")
		sess.OldInput(oldInput(input))
		redirect(w, r, sess, formURL, http.StatusSeeOther)
		return
	}

	log.Info().Str("conference_id", id).Msg("Conference updated successfully")
	metrics.ConferenceOps.WithLabelValues("update", "ok").Inc()
	sess.Success("Conference updated successfully!")
	redirect(w, r, sess, "/conferences", http.StatusSeeOther)
}

// Delete removes a conference. A repeated delete of an already-removed id
// is reported as a failure, not a no-op.
func (h *ConferenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id := chi.URLParam(r, "id")

	log.Info().Str("conference_id", id).Msg("Deleting conference")

	if err := h.service.Delete(id); err != nil {
		log.Error().Err(err).Str("conference_id", id).Msg("Error deleting conference")
		outcome := "error"
		if errors.Is(err, services.ErrNotFound) {
			outcome = "not_found"
		}
		metrics.ConferenceOps.WithLabelValues("delete", outcome).Inc()
		sess.Error("Failed to delete conference.")
		redirect(w, r, sess, "/conferences", http.StatusSeeOther)
		return
	}

	log.Info().Str("conference_id", id).Msg("Conference deleted successfully")
	metrics.ConferenceOps.WithLabelValues("delete", "ok").Inc()
	sess.Success("Conference deleted successfully!")
	redirect(w, r, sess, "/conferences", http.StatusSeeOther)
}

func (h *ConferenceHandler) render(w http.ResponseWriter, sess *session.Session, name, title string, data any) {
	h.renderer.Render(w, name, h.page(sess, title, data))
}

func (h *ConferenceHandler) page(sess *session.Session, title string, data any) web.Page {
	return web.Page{
		Title:     title,
		Messages:  sess.Flash.Messages,
		Errors:    sess.Flash.Errors,
		Old:       sess.Flash.Old,
		CSRFToken: sess.Token,
		Username:  sess.Username,
		Data:      data,
	}
}

func conferenceInput(r *http.Request) models.ConferenceInput {
	return models.ConferenceInput{
		Title:        r.PostFormValue("title"),
		Description:  r.PostFormValue("description"),
		Date:         r.PostFormValue("date"),
		Address:      r.PostFormValue("address"),
		Participants: r.PostFormValue("participants"),
	}
}

func oldInput(input models.ConferenceInput) map[string]string {
	return map[string]string{
		"title":        input.Title,
		"description":  input.Description,
		"date":         input.Date,
		"address":      input.Address,
		"participants": input.Participants,
	}
}

// redirect flushes staged flash state, then sends the client on.
func redirect(w http.ResponseWriter, r *http.Request, sess *session.Session, url string, code int) {
	if err := sess.Flush(); err != nil {
		log.Error().Err(err).Msg("Failed to persist session flash data")
	}
	http.Redirect(w, r, url, code)
}
