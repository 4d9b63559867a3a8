package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/geekheaven/identity/internal/models"
)

// MockIdentityRepository implements IdentityRepository for testing
type MockIdentityRepository struct {
	GetByIDFunc                   func(ctx context.Context, id string) (*models.Identity, error)
	GetByEmailFunc                func(ctx context.Context, email string) (*models.Identity, error)
	GetByEmailAndProviderFunc     func(ctx context.Context, email, provider string) (*models.Identity, error)
	GetByEmailOrGoogleSubjectFunc func(ctx context.Context, email, subjectID string) (*models.Identity, error)
	CreateFunc                    func(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	UpdateFunc                    func(ctx context.Context, identity *models.Identity) (*models.Identity, error)
}

func (m *MockIdentityRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockIdentityRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockIdentityRepository) GetByEmailAndProvider(ctx context.Context, email, provider string) (*models.Identity, error) {
	if m.GetByEmailAndProviderFunc != nil {
		return m.GetByEmailAndProviderFunc(ctx, email, provider)
	}
	return nil, models.ErrNotFound
}

func (m *MockIdentityRepository) GetByEmailOrGoogleSubject(ctx context.Context, email, subjectID string) (*models.Identity, error) {
	if m.GetByEmailOrGoogleSubjectFunc != nil {
		return m.GetByEmailOrGoogleSubjectFunc(ctx, email, subjectID)
	}
	return nil, models.ErrNotFound
}

func (m *MockIdentityRepository) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, identity)
	}
	return nil, models.ErrInternalServer
}

func (m *MockIdentityRepository) Update(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, identity)
	}
	return nil, models.ErrInternalServer
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendVerificationEmailFunc  func(ctx context.Context, email, name, token string, expiresAt time.Time) error
	SendPasswordResetEmailFunc func(ctx context.Context, email, name, token string, expiresAt time.Time) error
}

func (m *MockEmailService) SendVerificationEmail(ctx context.Context, email, name, token string, expiresAt time.Time) error {
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, email, name, token, expiresAt)
	}
	return nil
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, name, token string, expiresAt time.Time) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, email, name, token, expiresAt)
	}
	return nil
}

// MockGoogleVerifier implements GoogleVerifier for testing
type MockGoogleVerifier struct {
	VerifyFunc func(ctx context.Context, accessToken string) (*GoogleUserInfo, error)
}

func (m *MockGoogleVerifier) Verify(ctx context.Context, accessToken string) (*GoogleUserInfo, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, accessToken)
	}
	return nil, models.ErrInvalidToken
}

// memoryKV is an in-memory KV with per-key TTL and an atomic GetDel,
// mirroring the Redis wrapper's semantics for unit tests.
type memoryKV struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no TTL
}

func newMemoryKV() *memoryKV {
	return &memoryKV{entries: make(map[string]memoryEntry)}
}

func (kv *memoryKV) evicted(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt)
}

func (kv *memoryKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	kv.entries[key] = entry
	return nil
}

func (kv *memoryKV) Get(ctx context.Context, key string) (string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	entry, ok := kv.entries[key]
	if !ok || kv.evicted(entry) {
		return "", models.ErrNotFound
	}
	return entry.value, nil
}

func (kv *memoryKV) GetDel(ctx context.Context, key string) (string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	entry, ok := kv.entries[key]
	if !ok || kv.evicted(entry) {
		return "", models.ErrNotFound
	}
	delete(kv.entries, key)
	return entry.value, nil
}

func (kv *memoryKV) Del(ctx context.Context, keys ...string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	for _, key := range keys {
		delete(kv.entries, key)
	}
	return nil
}

func (kv *memoryKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for key, entry := range kv.entries {
		if kv.evicted(entry) {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// setRaw stores a value directly, bypassing Issue; used to simulate stores
// whose TTL eviction lags the embedded expiry.
func (kv *memoryKV) setRaw(key, value string) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.entries[key] = memoryEntry{value: value}
}
