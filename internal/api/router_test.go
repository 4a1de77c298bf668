package api_test

import (
	"database/sql"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/confdesk/confdesk/internal/api"
	"github.com/confdesk/confdesk/internal/database"
	"github.com/confdesk/confdesk/internal/services"
	"github.com/confdesk/confdesk/internal/session"
	"github.com/confdesk/confdesk/internal/validation"
	"github.com/confdesk/confdesk/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type app struct {
	server *httptest.Server
	client *http.Client
	db     *sql.DB
	svc    *services.ConferenceService
}

func newApp(t *testing.T) *app {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(db))
	t.Cleanup(func() { db.Close() })

	renderer, err := web.New()
	require.NoError(t, err)

	conferenceService := services.NewConferenceService(db)
	userService := services.NewUserService(db)
	sessions := session.NewManager(db, time.Hour, false)

	router := api.NewRouter(conferenceService, userService, sessions, renderer, 2)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &app{
		server: server,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		db:  db,
		svc: conferenceService,
	}
}

// get fetches a page without following redirects and returns the response
// plus its body.
func (a *app) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.Get(a.server.URL + path)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func (a *app) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := a.client.Post(a.server.URL+path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp
}

// csrfToken reads the current session's anti-forgery token straight from
// storage, using the cookie the client holds.
func (a *app) csrfToken(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(a.server.URL)
	require.NoError(t, err)
	var id string
	for _, c := range a.client.Jar.Cookies(u) {
		if c.Name == session.CookieName {
			id = c.Value
		}
	}
	require.NotEmpty(t, id, "no session cookie held by the client")
	var token string
	require.NoError(t, a.db.QueryRow("SELECT token FROM sessions WHERE id = ?", id).Scan(&token))
	return token
}

func (a *app) sessionID(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(a.server.URL)
	require.NoError(t, err)
	for _, c := range a.client.Jar.Cookies(u) {
		if c.Name == session.CookieName {
			return c.Value
		}
	}
	return ""
}

func (a *app) login(t *testing.T) {
	t.Helper()
	a.get(t, "/login")
	resp := a.postForm(t, "/login", url.Values{
		"_token":   {a.csrfToken(t)},
		"username": {"pass"},
		"password": {"pass"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
}

func validConferenceForm(token string) url.Values {
	return url.Values{
		"_token":       {token},
		"title":        {"ACME Summit"},
		"description":  {"annual meetup"},
		"date":         {time.Now().AddDate(0, 0, 10).Format(validation.DateLayout)},
		"address":      {"1 Main St"},
		"participants": {"100"},
	}
}

func TestRootRedirectsToListing(t *testing.T) {
	a := newApp(t)

	resp, _ := a.get(t, "/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/conferences", resp.Header.Get("Location"))
}

func TestListingRedirectsOnInvalidSort(t *testing.T) {
	a := newApp(t)

	resp, _ := a.get(t, "/conferences?sortField=participants&sortDirection=asc")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/conferences", resp.Header.Get("Location"))

	_, body := a.get(t, "/conferences")
	assert.Contains(t, body, "Invalid sorting parameters.")
}

func TestListingShowsRecordsAndSortState(t *testing.T) {
	a := newApp(t)

	_, err := a.svc.Create("Go Conf", "talks", time.Now().AddDate(0, 0, 5), "1 Main St", 100)
	require.NoError(t, err)

	resp, body := a.get(t, "/conferences?sortField=title&sortDirection=desc")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Go Conf")
	assert.Contains(t, body, "1 conference(s) total")
	assert.Contains(t, body, "currently title, desc")
}

func TestCSRFProtectionRejectsMissingToken(t *testing.T) {
	a := newApp(t)

	a.get(t, "/login")
	resp := a.postForm(t, "/login", url.Values{
		"username": {"pass"},
		"password": {"pass"},
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLoginFailureUnknownUserAndWrongPasswordLookTheSame(t *testing.T) {
	for _, tc := range []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "pass", "nope"},
		{"unknown user", "nobody", "nope"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := newApp(t)
			a.get(t, "/login")

			resp := a.postForm(t, "/login", url.Values{
				"_token":   {a.csrfToken(t)},
				"username": {tc.username},
				"password": {tc.password},
			})
			require.Equal(t, http.StatusSeeOther, resp.StatusCode)
			assert.Equal(t, "/login", resp.Header.Get("Location"))

			_, body := a.get(t, "/login")
			assert.Contains(t, body, "Invalid credentials.")
			assert.Contains(t, body, `value="`+tc.username+`"`)
			assert.NotContains(t, body, "nope")

			// Still anonymous: mutating routes bounce to the login form
			create, _ := a.get(t, "/conferences/create")
			assert.Equal(t, http.StatusFound, create.StatusCode)
			assert.Equal(t, "/login", create.Header.Get("Location"))
		})
	}
}

func TestLoginValidationRequiresBothFields(t *testing.T) {
	a := newApp(t)
	a.get(t, "/login")

	resp := a.postForm(t, "/login", url.Values{
		"_token":   {a.csrfToken(t)},
		"username": {""},
		"password": {""},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := a.get(t, "/login")
	assert.Contains(t, body, "The username field is required.")
	assert.Contains(t, body, "The password field is required.")
}

func TestLoginRotatesSessionAndRedirectsToIntended(t *testing.T) {
	a := newApp(t)

	// Anonymous attempt records the destination
	resp, _ := a.get(t, "/conferences/create")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))

	a.get(t, "/login")
	before := a.sessionID(t)

	login := a.postForm(t, "/login", url.Values{
		"_token":   {a.csrfToken(t)},
		"username": {"pass"},
		"password": {"pass"},
	})
	require.Equal(t, http.StatusSeeOther, login.StatusCode)
	assert.Equal(t, "/conferences/create", login.Header.Get("Location"))

	// Session fixation defense: the pre-login id is gone
	assert.NotEqual(t, before, a.sessionID(t))

	_, body := a.get(t, "/conferences/create")
	assert.Contains(t, body, "Welcome back!")
}

func TestCreateConference(t *testing.T) {
	a := newApp(t)
	a.login(t)

	resp := a.postForm(t, "/conferences", validConferenceForm(a.csrfToken(t)))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/conferences", resp.Header.Get("Location"))

	_, body := a.get(t, "/conferences")
	assert.Contains(t, body, "Conference created successfully!")
	assert.Contains(t, body, "ACME Summit")

	records, total, err := a.svc.List("date", "asc", 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "ACME Summit", records[0].Title)
	assert.Equal(t, "annual meetup", records[0].Description)
	assert.Equal(t, "1 Main St", records[0].Address)
	assert.Equal(t, 100, records[0].Participants)
}

func TestCreateConferenceValidationFailure(t *testing.T) {
	a := newApp(t)
	a.login(t)

	form := url.Values{
		"_token":       {a.csrfToken(t)},
		"title":        {""},
		"description":  {"annual meetup"},
		"date":         {time.Now().AddDate(0, 0, -10).Format(validation.DateLayout)},
		"address":      {"1 Main St"},
		"participants": {"1"},
	}
	resp := a.postForm(t, "/conferences", form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/conferences/create", resp.Header.Get("Location"))

	_, body := a.get(t, "/conferences/create")
	assert.Contains(t, body, "The title field is required.")
	assert.Contains(t, body, "The date must be today or later.")
	assert.Contains(t, body, "The participants field must be at least 2.")
	// Submitted input is preserved for re-display
	assert.Contains(t, body, "annual meetup")

	_, total, err := a.svc.List("date", "asc", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total, "nothing may be persisted on validation failure")
}

func TestEditFormPrefilled(t *testing.T) {
	a := newApp(t)
	a.login(t)

	created, err := a.svc.Create("Editable", "original", time.Now().AddDate(0, 0, 5), "1 Main St", 42)
	require.NoError(t, err)

	resp, body := a.get(t, "/conferences/"+created.ID+"/edit")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `value="Editable"`)
	assert.Contains(t, body, "original")
	assert.Contains(t, body, `value="42"`)
	assert.Contains(t, body, "Last edited:")
}

func TestEditFormUnknownID(t *testing.T) {
	a := newApp(t)
	a.login(t)

	resp, _ := a.get(t, "/conferences/no-such-id/edit")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/conferences", resp.Header.Get("Location"))

	_, body := a.get(t, "/conferences")
	assert.Contains(t, body, "Conference not found.")
}

func TestUpdateConferenceViaMethodOverride(t *testing.T) {
	a := newApp(t)
	a.login(t)

	created, err := a.svc.Create("Before", "old", time.Now().AddDate(0, 0, 5), "Old address", 50)
	require.NoError(t, err)

	form := validConferenceForm(a.csrfToken(t))
	form.Set("_method", "PUT")
	resp := a.postForm(t, "/conferences/"+created.ID, form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/conferences", resp.Header.Get("Location"))

	_, body := a.get(t, "/conferences")
	assert.Contains(t, body, "Conference updated successfully!")

	stored, err := a.svc.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACME Summit", stored.Title)
}

func TestDeleteConference(t *testing.T) {
	a := newApp(t)
	a.login(t)

	created, err := a.svc.Create("Doomed", "d", time.Now().AddDate(0, 0, 5), "1 Main St", 10)
	require.NoError(t, err)

	form := url.Values{"_token": {a.csrfToken(t)}, "_method": {"DELETE"}}
	resp := a.postForm(t, "/conferences/"+created.ID, form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := a.get(t, "/conferences")
	assert.Contains(t, body, "Conference deleted successfully!")

	_, err = a.svc.Get(created.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	// Deleting again is a reported failure, not a silent no-op
	resp = a.postForm(t, "/conferences/"+created.ID, url.Values{"_token": {a.csrfToken(t)}, "_method": {"DELETE"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body = a.get(t, "/conferences")
	assert.Contains(t, body, "Failed to delete conference.")
}

func TestLogout(t *testing.T) {
	a := newApp(t)
	a.login(t)

	resp := a.postForm(t, "/logout", url.Values{"_token": {a.csrfToken(t)}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, body := a.get(t, "/conferences")
	assert.Contains(t, body, "You have been logged out successfully.")

	// Authenticated-only routes reject the client again
	create, _ := a.get(t, "/conferences/create")
	assert.Equal(t, http.StatusFound, create.StatusCode)
	assert.Equal(t, "/login", create.Header.Get("Location"))
}

func TestLogoutWhenAlreadyLoggedOut(t *testing.T) {
	a := newApp(t)
	a.get(t, "/conferences")

	resp := a.postForm(t, "/logout", url.Values{"_token": {a.csrfToken(t)}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}
