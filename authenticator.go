package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Credentials is the transient login payload. It is submitted once and
// discarded after the call resolves; the client never stores passwords.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserDetails carries the patient attributes collected at registration.
type UserDetails struct {
	Age      int     `json:"age"`
	Gender   string  `json:"gender"`
	HeightCm float64 `json:"height_cm"`
	WeightKg float64 `json:"weight_kg"`
	Phone    string  `json:"phone"`
	Address  string  `json:"address"`
}

// RegistrationProfile is the transient registration payload.
type RegistrationProfile struct {
	FullName string      `json:"fullName"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     Role        `json:"-"`
	Details  UserDetails `json:"user_details"`
}

// Authenticator performs login and registration against the external API and
// is the only component besides explicit logout that mutates the Store.
type Authenticator struct {
	store   *Store
	baseURL string
	client  *http.Client
	logger  Logger
	debug   bool
}

// AuthenticatorOption customizes an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) AuthenticatorOption {
	return func(a *Authenticator) {
		if client != nil {
			a.client = client
		}
	}
}

// WithAuthenticatorLogger overrides the default logger.
func WithAuthenticatorLogger(logger Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithDebug enables request/response dumps. Never enable in production:
// payloads contain identifiers.
func WithDebug(debug bool) AuthenticatorOption {
	return func(a *Authenticator) {
		a.debug = debug
	}
}

// NewAuthenticator creates an authenticator bound to a session store and the
// API base URL, e.g. http://localhost:8080/api.
func NewAuthenticator(store *Store, baseURL string, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// authResponse is the relevant slice of login/register response bodies.
type authResponse struct {
	Token   string          `json:"token"`
	Message string          `json:"message"`
	User    json.RawMessage `json:"user"`
}

// Login exchanges credentials for a bearer token. The session transitions to
// pending for the duration of the call and ends authenticated or in error.
// A call issued while another login or registration is pending fails
// immediately with ErrLoginInProgress and leaves the session untouched.
func (a *Authenticator) Login(ctx context.Context, creds Credentials) (Session, error) {
	if err := a.store.SetPending(); err != nil {
		return a.store.Snapshot(), err
	}

	a.logger.Debug("login attempt for %s", creds.Email)

	status, body, err := a.postJSON(ctx, "/auth/login", creds)
	if err != nil {
		a.logger.Error("login transport failure: %v", err)
		sess := a.store.SetError(MsgNetworkFailure)
		return sess, NewNetworkError(err)
	}

	var res authResponse
	if len(body) > 0 {
		// A non-JSON error body is fine; we fall back to generic messages.
		_ = json.Unmarshal(body, &res)
	}

	if status < 200 || status >= 300 {
		message := res.Message
		if message == "" {
			message = "Login failed"
		}
		sess := a.store.SetError(message)
		return sess, NewRejectedError(message)
	}

	if res.Token == "" {
		message := "Login failed"
		a.logger.Error("login response missing token (status %d)", status)
		sess := a.store.SetError(message)
		return sess, NewRejectedError(message)
	}

	user := userFromWire(res.User)
	if user == nil {
		// No user object in the response: identity is not yet known, which
		// is not a failure. A JWT token may still carry enough to show.
		user = IdentityFromToken(res.Token)
	}

	return a.store.SetAuthenticated(ctx, res.Token, user)
}

// registerRequest is the wire shape of the registration call; role travels as
// its integer code.
type registerRequest struct {
	FullName string      `json:"fullName"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     int         `json:"role"`
	Details  UserDetails `json:"user_details"`
}

// Register creates an account. Registration never logs the user in or out:
// a visitor's session returns to idle on success, and a session that was
// already authenticated survives both outcomes with its credential intact.
func (a *Authenticator) Register(ctx context.Context, profile RegistrationProfile) error {
	if err := a.store.SetPending(); err != nil {
		return err
	}

	payload := registerRequest{
		FullName: profile.FullName,
		Email:    profile.Email,
		Password: profile.Password,
		Role:     profile.Role.Code(),
		Details:  profile.Details,
	}

	status, body, err := a.postJSON(ctx, "/auth/register", payload)
	if err != nil {
		a.logger.Error("register transport failure: %v", err)
		a.store.settleError(MsgNetworkFailure)
		return NewNetworkError(err)
	}

	var res authResponse
	if len(body) > 0 {
		_ = json.Unmarshal(body, &res)
	}

	if status < 200 || status >= 300 {
		message := res.Message
		if message == "" {
			message = "Registration failed"
		}
		a.store.settleError(message)
		return NewRejectedError(message)
	}

	a.store.settle()
	return nil
}

func (a *Authenticator) postJSON(ctx context.Context, path string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	res, err := a.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return 0, nil, err
	}

	return res.StatusCode, body, nil
}

// userFromWire decodes the optional user object of a login response. Field
// naming varies between backend versions, so it accepts both snake and camel
// case and numeric or string ids.
func userFromWire(raw json.RawMessage) *User {
	if len(raw) == 0 {
		return nil
	}

	var wire struct {
		ID          any    `json:"id"`
		FullName    string `json:"full_name"`
		FullNameAlt string `json:"fullName"`
		Name        string `json:"name"`
		Email       string `json:"email"`
		Role        any    `json:"role"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil
	}

	user := &User{Email: wire.Email}

	switch id := wire.ID.(type) {
	case string:
		user.ID = id
	case float64:
		user.ID = strconv.FormatInt(int64(id), 10)
	}

	switch {
	case wire.FullName != "":
		user.FullName = wire.FullName
	case wire.FullNameAlt != "":
		user.FullName = wire.FullNameAlt
	case wire.Name != "":
		user.FullName = wire.Name
	}

	switch role := wire.Role.(type) {
	case string:
		if parsed, ok := ParseRole(role); ok {
			user.Role = parsed
		}
	case float64:
		if parsed, ok := RoleFromCode(int(role)); ok {
			user.Role = parsed
		}
	}

	if user.ID == "" && user.FullName == "" && user.Email == "" && user.Role == "" {
		return nil
	}

	return user
}
