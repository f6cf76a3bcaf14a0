package portal

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// tokenKey is the fixed name the bearer token is persisted under, the
// equivalent of the web client's localStorage key.
const tokenKey = "auth_token"

// TokenStore persists the bearer token across process restarts so users are
// not forced to re-authenticate on every start.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// MemoryTokenStore keeps the token in memory only. Useful for tests and for
// callers that explicitly do not want persistence.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (m *MemoryTokenStore) Load(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenStore) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

type storedToken struct {
	bun.BaseModel `bun:"table:portal_tokens,alias:pt"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// BunTokenStore persists the token in a single keyed row of a bun-managed
// database, typically sqlite on disk.
type BunTokenStore struct {
	db *bun.DB
}

func NewBunTokenStore(db *bun.DB) *BunTokenStore {
	return &BunTokenStore{db: db}
}

// Init creates the backing table when missing.
func (s *BunTokenStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*storedToken)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "unable to initialize token store")
	}
	return nil
}

func (s *BunTokenStore) Load(ctx context.Context) (string, error) {
	record := new(storedToken)
	err := s.db.NewSelect().
		Model(record).
		Where("key = ?", tokenKey).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "unable to load persisted token")
	}
	return record.Value, nil
}

func (s *BunTokenStore) Save(ctx context.Context, token string) error {
	record := &storedToken{
		Key:       tokenKey,
		Value:     token,
		UpdatedAt: time.Now(),
	}

	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "unable to persist token")
	}
	return nil
}

func (s *BunTokenStore) Delete(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*storedToken)(nil)).
		Where("key = ?", tokenKey).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "unable to delete persisted token")
	}
	return nil
}
