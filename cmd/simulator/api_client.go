package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIClient handles HTTP communication with the arena backend
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL + "/api/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Response types matching backend

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type AuthResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type ReceiveResponse struct {
	HeroesWaiting int     `json:"heroesWaiting"`
	BattleNumber  *uint64 `json:"battleNumber,omitempty"`
}

type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Score    int32  `json:"score"`
	Battles  uint32 `json:"battles"`
	Wins     uint32 `json:"wins"`
	Ties     uint32 `json:"ties"`
	Losses   uint32 `json:"losses"`
}

type Leaderboards struct {
	AllTime           []LeaderboardEntry `json:"allTime"`
	Tournament        []LeaderboardEntry `json:"tournament"`
	TournamentStarted int64              `json:"tournamentStarted"`
}

type Usage struct {
	PlayerCount          uint32 `json:"playerCount"`
	ArenaBattleCount     uint64 `json:"arenaBattleCount"`
	PreviousArenaBattles uint64 `json:"previousArenaBattles"`
}

// RegisterUser creates a new player account
func (c *APIClient) RegisterUser(baseName string) (*User, string, error) {
	displayName := fmt.Sprintf("%s_%d", baseName, time.Now().UnixNano()%100000)

	body := map[string]string{
		"displayName": displayName,
		"password":    "testpassword123",
	}

	resp, err := c.post("/auth/register", body, "")
	if err != nil {
		return nil, "", fmt.Errorf("register request failed: %w", err)
	}
	defer resp.Body.Close()

	var result AuthResponse
	if err := decode(resp, &result); err != nil {
		return nil, "", fmt.Errorf("register: %w", err)
	}

	return &result.User, result.AccessToken, nil
}

// Receive posts a hero arrival as the card contract identified by
// serviceToken.
func (c *APIClient) Receive(serviceToken, owner, tokenID, entropy string) (*ReceiveResponse, error) {
	body := map[string]interface{}{
		"from":     owner,
		"tokenIds": []string{tokenID},
		"entropy":  entropy,
	}

	resp, err := c.post("/arena/receive", body, serviceToken)
	if err != nil {
		return nil, fmt.Errorf("receive request failed: %w", err)
	}
	defer resp.Body.Close()

	var result ReceiveResponse
	if err := decode(resp, &result); err != nil {
		return nil, fmt.Errorf("receive %s: %w", tokenID, err)
	}
	return &result, nil
}

// Leaderboards fetches both public leaderboards
func (c *APIClient) Leaderboards() (*Leaderboards, error) {
	resp, err := c.get("/arena/leaderboards", "")
	if err != nil {
		return nil, fmt.Errorf("leaderboards request failed: %w", err)
	}
	defer resp.Body.Close()

	var result Leaderboards
	if err := decode(resp, &result); err != nil {
		return nil, fmt.Errorf("leaderboards: %w", err)
	}
	return &result, nil
}

// Usage fetches arena counters
func (c *APIClient) Usage() (*Usage, error) {
	resp, err := c.get("/arena/usage", "")
	if err != nil {
		return nil, fmt.Errorf("usage request failed: %w", err)
	}
	defer resp.Body.Close()

	var result Usage
	if err := decode(resp, &result); err != nil {
		return nil, fmt.Errorf("usage: %w", err)
	}
	return &result, nil
}

// HTTP helpers

func decode(resp *http.Response, out interface{}) error {
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *APIClient) get(path, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

func (c *APIClient) post(path string, body interface{}, token string) (*http.Response, error) {
	return postJSON(c.httpClient, c.baseURL+path, body, token)
}

func postJSON(client *http.Client, url string, body interface{}, token string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest("POST", url, bodyReader)
	if err != nil {
		return nil, err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	return client.Do(req)
}
