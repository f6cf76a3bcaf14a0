package portal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Patient is a single patient record as returned by the records endpoints.
type Patient struct {
	ID       string  `json:"id"`
	FullName string  `json:"full_name"`
	Age      int     `json:"age"`
	Gender   string  `json:"gender"`
	HeightCm float64 `json:"height_cm"`
	WeightKg float64 `json:"weight_kg"`
	Phone    string  `json:"phone"`
	Address  string  `json:"address"`
}

// PatientsClient reads patient records from the API with the session's bearer
// token. Role restrictions are enforced server-side; this client only reports
// what the server decided.
type PatientsClient struct {
	store   *Store
	baseURL string
	client  *http.Client
	logger  Logger
}

// PatientsClientOption customizes a PatientsClient.
type PatientsClientOption func(*PatientsClient)

// WithPatientsHTTPClient overrides the HTTP client used for API calls.
func WithPatientsHTTPClient(client *http.Client) PatientsClientOption {
	return func(p *PatientsClient) {
		if client != nil {
			p.client = client
		}
	}
}

// WithPatientsLogger overrides the default logger.
func WithPatientsLogger(logger Logger) PatientsClientOption {
	return func(p *PatientsClient) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPatientsClient(store *Store, baseURL string, opts ...PatientsClientOption) *PatientsClient {
	p := &PatientsClient{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// List fetches all patient records visible to the current session.
func (p *PatientsClient) List(ctx context.Context) ([]Patient, error) {
	var payload struct {
		Data []Patient `json:"data"`
	}
	if err := p.getJSON(ctx, "/patients", &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// Get fetches a single patient record by id.
func (p *PatientsClient) Get(ctx context.Context, id string) (*Patient, error) {
	var payload struct {
		Data *Patient `json:"data"`
	}
	if err := p.getJSON(ctx, "/patients/"+url.PathEscape(id), &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (p *PatientsClient) getJSON(ctx context.Context, path string, out any) error {
	token := p.store.Snapshot().Token
	if token == "" {
		return ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "unable to build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", uuid.NewString())

	res, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("patients request failure: %v", err)
		return NewNetworkError(err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return NewNetworkError(err)
	}

	if res.StatusCode == http.StatusUnauthorized {
		// The credential is no longer accepted anywhere, so the session is
		// reset and the user goes back through login.
		p.logger.Info("bearer token rejected, clearing session")
		if err := p.store.Clear(ctx); err != nil {
			p.logger.Warn("unable to clear session: %v", err)
		}
		return NewRejectedError(messageFromBody(body, "Session expired, please sign in again"))
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return goerrors.New(messageFromBody(body, "Request failed"), goerrors.CategoryOperation).
			WithMetadata(map[string]any{"status": res.StatusCode, "path": path})
	}

	if err := json.Unmarshal(body, out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "unable to decode response")
	}

	return nil
}

func messageFromBody(body []byte, def string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
			return payload.Message
		}
	}
	return def
}
