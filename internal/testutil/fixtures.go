package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dom/hero-arena/internal/assetregistry"
	"github.com/dom/hero-arena/internal/domain"
	"github.com/dom/hero-arena/internal/service"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	id          uuid.UUID
	displayName string
	password    string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		id:          uuid.New(),
		displayName: fmt.Sprintf("testuser_%s", uuid.New().String()[:8]),
		password:    "testpassword123",
	}
}

// WithID sets the user id, which is also the arena player id
func (b *UserBuilder) WithID(id uuid.UUID) *UserBuilder {
	b.id = id
	return b
}

// WithDisplayName sets the display name
func (b *UserBuilder) WithDisplayName(name string) *UserBuilder {
	b.displayName = name
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:           b.id,
		DisplayName:  b.displayName,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	User struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	} `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// BuildAndAuthenticate creates a user via API and returns the user and access token
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, string) {
	t.Helper()

	reqBody := map[string]string{
		"displayName": b.displayName,
		"password":    b.password,
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	userID, _ := uuid.Parse(authResp.User.ID)
	user := &domain.User{
		ID:          userID,
		DisplayName: authResp.User.DisplayName,
	}

	return user, authResp.AccessToken
}

// Stats builds hero stats whose base and current skills are equal.
func Stats(skills ...uint8) domain.HeroStats {
	var s domain.Skills
	copy(s[:], skills)
	return domain.HeroStats{Base: s, Current: s}
}

// FakeRegistry is an in-memory card contract answering private metadata
// queries.
type FakeRegistry struct {
	mu      sync.Mutex
	tokens  map[string]*assetregistry.Metadata
	err     error
	queries []string
}

func NewFakeRegistry() *FakeRegistry {
	return &FakeRegistry{tokens: make(map[string]*assetregistry.Metadata)}
}

// AddHero stores a token with the given name and stats.
func (r *FakeRegistry) AddHero(tokenID, name string, stats domain.HeroStats) {
	meta, err := assetregistry.StatsMetadata(name, stats)
	if err != nil {
		panic(err)
	}
	r.SetMetadata(tokenID, meta)
}

// SetMetadata stores raw metadata for a token.
func (r *FakeRegistry) SetMetadata(tokenID string, meta *assetregistry.Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[tokenID] = meta
}

// FailWith makes every query fail with err until cleared with nil.
func (r *FakeRegistry) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Queries returns the token ids queried so far.
func (r *FakeRegistry) Queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

func (r *FakeRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = make(map[string]*assetregistry.Metadata)
	r.err = nil
	r.queries = nil
}

func (r *FakeRegistry) PrivateMetadata(_ context.Context, _ domain.CardContract, tokenID, _, _ string) (*assetregistry.Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, tokenID)
	if r.err != nil {
		return nil, r.err
	}
	meta, ok := r.tokens[tokenID]
	if !ok {
		return nil, domain.ErrMissingHeroStats
	}
	return meta, nil
}

// SendHero registers a hero with the fake contract and sends it to the
// arena on behalf of owner.
func (a *TestArena) SendHero(t *testing.T, owner, tokenID, name string, stats domain.HeroStats) *service.ReceiveResult {
	t.Helper()

	a.Registry.AddHero(tokenID, name, stats)
	result, err := a.Services.Arena.Receive(context.Background(), TestCardContract, service.ReceiveInput{
		From:     owner,
		TokenIDs: []string{tokenID},
		Entropy:  "entropy-" + owner,
	})
	if err != nil {
		t.Fatalf("failed to send hero %s for %s: %v", tokenID, owner, err)
	}
	return result
}

// Battle fills the bullpen with one hero per owner and returns the battle.
func (a *TestArena) Battle(t *testing.T, owners [domain.BullpenSize]string) *domain.Battle {
	t.Helper()

	var result *service.ReceiveResult
	for i, owner := range owners {
		tokenID := fmt.Sprintf("%s-hero-%s", owner, uuid.New().String()[:8])
		result = a.SendHero(t, owner, tokenID, fmt.Sprintf("Hero %d", i), Stats(50, 50, 50, 50))
	}
	if result.Battle == nil {
		t.Fatalf("expected a battle after %d heroes", domain.BullpenSize)
	}
	return result.Battle
}

// ServiceToken issues a service token for subject.
func (a *TestArena) ServiceToken(t *testing.T, subject string) string {
	t.Helper()

	token, err := a.Services.Auth.IssueServiceToken(subject)
	if err != nil {
		t.Fatalf("failed to issue service token: %v", err)
	}
	return token
}

// AdminToken issues a service token for the arena admin.
func (a *TestArena) AdminToken(t *testing.T) string {
	t.Helper()
	return a.ServiceToken(t, TestAdminID)
}

// CreateAuthenticatedRequest creates an HTTP request with auth header
func CreateAuthenticatedRequest(t *testing.T, method, url string, body interface{}, token string) *http.Request {
	t.Helper()

	var bodyReader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	} else {
		bodyReader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// Do sends an authenticated request and decodes a JSON response into out
// when out is non-nil. It returns the status code.
func Do(t *testing.T, method, url string, body interface{}, token string, out interface{}) int {
	t.Helper()

	req := CreateAuthenticatedRequest(t, method, url, body, token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}
