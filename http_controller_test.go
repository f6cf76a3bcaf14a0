package portal_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	portal "github.com/carevault/go-portal"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// portalFixture is a fully wired frontend talking to a stub API.
type portalFixture struct {
	app   *fiber.App
	store *portal.Store
	api   *httptest.Server
}

func newPortalFixture(t *testing.T) *portalFixture {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds portal.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))

		if creds.Password != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"message": "bad credentials"})
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"token": "T1",
			"user": map[string]any{
				"id":       "u1",
				"fullName": "Dr. Jane Doe",
				"email":    creds.Email,
				"role":     "Doctor",
			},
		})
	})
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"message": "created"})
	})
	mux.HandleFunc("GET /patients", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer T1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []any{patientFixture()},
		})
	})
	mux.HandleFunc("GET /patients/p1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": patientFixture()})
	})

	api := httptest.NewServer(mux)
	t.Cleanup(api.Close)

	store := portal.NewStore(portal.NewMemoryTokenStore())
	guard := portal.NewGuard(store)
	controller := portal.NewWebController(
		portal.WithControllerClients(
			store,
			portal.NewAuthenticator(store, api.URL),
			portal.NewPatientsClient(store, api.URL),
			guard,
		),
	)

	app := fiber.New(fiber.Config{
		Views: django.New("./views", ".html"),
	})
	portal.RegisterRoutes(app, controller, guard)

	return &portalFixture{app: app, store: store, api: api}
}

func (f *portalFixture) loginForm(t *testing.T, values url.Values, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	res, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return res
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(body)
}

func TestLoginFlow(t *testing.T) {
	t.Run("valid credentials authenticate and land home", func(t *testing.T) {
		f := newPortalFixture(t)

		res := f.loginForm(t, url.Values{
			"email":    {"jane@example.com"},
			"password": {"secret1"},
		})
		defer res.Body.Close()

		assert.Equal(t, fiber.StatusSeeOther, res.StatusCode)
		assert.Equal(t, "/", res.Header.Get("Location"))

		sess := f.store.Snapshot()
		assert.True(t, sess.Authenticated())
		require.NotNil(t, sess.User)
		assert.Equal(t, portal.RoleDoctor, sess.User.Role)
	})

	t.Run("validation failure re-renders the form", func(t *testing.T) {
		f := newPortalFixture(t)

		res := f.loginForm(t, url.Values{
			"email":    {"not-an-email"},
			"password": {"123"},
		})

		body := readBody(t, res)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
		assert.Contains(t, body, "Please enter a valid email address")
		assert.Contains(t, body, "Password must be at least 6 characters")
		// The typed email survives the round trip.
		assert.Contains(t, body, "not-an-email")
		assert.Equal(t, portal.StatusIdle, f.store.Snapshot().Status)
	})

	t.Run("rejected credentials show the server message", func(t *testing.T) {
		f := newPortalFixture(t)

		res := f.loginForm(t, url.Values{
			"email":    {"jane@example.com"},
			"password": {"wrong-password"},
		})

		body := readBody(t, res)
		assert.Contains(t, body, "bad credentials")
		assert.Equal(t, portal.StatusError, f.store.Snapshot().Status)
	})
}

func TestGuardedNavigationFlow(t *testing.T) {
	f := newPortalFixture(t)

	// Visiting /patients signed out bounces to login and remembers the path.
	res, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/patients/", nil))
	require.NoError(t, err)
	res.Body.Close()

	require.Equal(t, fiber.StatusSeeOther, res.StatusCode)
	require.Equal(t, "/login", res.Header.Get("Location"))

	var returnTo *http.Cookie
	for _, cookie := range res.Cookies() {
		if cookie.Name == "portal_return_to" {
			returnTo = cookie
		}
	}
	require.NotNil(t, returnTo)
	assert.Equal(t, "/patients/", returnTo.Value)

	// Logging in with the cookie resumes the original navigation.
	login := f.loginForm(t, url.Values{
		"email":    {"jane@example.com"},
		"password": {"secret1"},
	}, &http.Cookie{Name: returnTo.Name, Value: returnTo.Value})
	login.Body.Close()

	assert.Equal(t, fiber.StatusSeeOther, login.StatusCode)
	assert.Equal(t, "/patients/", login.Header.Get("Location"))

	// The patients page now renders records from the API.
	res, err = f.app.Test(httptest.NewRequest(http.MethodGet, "/patients/", nil), -1)
	require.NoError(t, err)

	body := readBody(t, res)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	assert.Contains(t, body, "John Smith")

	// And a single record page resolves by id.
	res, err = f.app.Test(httptest.NewRequest(http.MethodGet, "/patients/p1", nil), -1)
	require.NoError(t, err)

	body = readBody(t, res)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	assert.Contains(t, body, "9 Elm Street")
}

func TestLogoutFlow(t *testing.T) {
	f := newPortalFixture(t)

	login := f.loginForm(t, url.Values{
		"email":    {"jane@example.com"},
		"password": {"secret1"},
	})
	login.Body.Close()
	require.True(t, f.store.Snapshot().Authenticated())

	res, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/logout", nil))
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, fiber.StatusTemporaryRedirect, res.StatusCode)
	assert.Equal(t, "/", res.Header.Get("Location"))
	assert.Equal(t, portal.StatusIdle, f.store.Snapshot().Status)

	// Guarded pages are locked again.
	res, err = f.app.Test(httptest.NewRequest(http.MethodGet, "/patients/", nil))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, fiber.StatusSeeOther, res.StatusCode)
}

func TestRegistrationFlow(t *testing.T) {
	registrationForm := func(payload portal.RegistrationPayload) url.Values {
		return url.Values{
			"full_name":        {payload.FullName},
			"email":            {payload.Email},
			"password":         {payload.Password},
			"confirm_password": {payload.ConfirmPassword},
			"role":             {payload.RoleCode},
			"age":              {payload.Age},
			"gender":           {payload.Gender},
			"height_cm":        {payload.HeightCm},
			"weight_kg":        {payload.WeightKg},
			"phone":            {payload.Phone},
			"address":          {payload.Address},
		}
	}

	t.Run("valid registration redirects to login", func(t *testing.T) {
		f := newPortalFixture(t)

		form := registrationForm(validRegistrationPayload())
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		res, err := f.app.Test(req, -1)
		require.NoError(t, err)
		res.Body.Close()

		assert.Equal(t, fiber.StatusSeeOther, res.StatusCode)
		assert.Equal(t, "/login", res.Header.Get("Location"))
		assert.False(t, f.store.Snapshot().Authenticated())
	})

	t.Run("weak password re-renders with messages and strength", func(t *testing.T) {
		f := newPortalFixture(t)

		payload := validRegistrationPayload()
		payload.Password = "abcdefgh"
		payload.ConfirmPassword = "abcdefgh"

		form := registrationForm(payload)
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		res, err := f.app.Test(req, -1)
		require.NoError(t, err)

		body := readBody(t, res)
		assert.Contains(t, body, "Password must contain at least one uppercase letter")
		assert.Contains(t, body, "Weak")
	})
}
