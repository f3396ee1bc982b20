// Package user is the boundary to the external user service: profile reads
// and consent registration. The enrollment flow forwards the caller's own
// bearer token on every call.
package user

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"outreach/internal/platform/config"
	"outreach/pkg/platform/sentinel"
)

// UserType is one entry of a profile's declared user types.
type UserType struct {
	Type    string `json:"type" bson:"type"`
	SubType string `json:"subType,omitempty" bson:"subType,omitempty"`
}

// UserLocation is one entry of a profile's location set.
type UserLocation struct {
	ID   string `json:"id" bson:"id"`
	Type string `json:"type" bson:"type"`
	Code string `json:"code,omitempty" bson:"code,omitempty"`
}

// Profile is the slice of the upstream profile snapshotted into memberships.
type Profile struct {
	ID               string         `json:"id" bson:"id"`
	FirstName        string         `json:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName         string         `json:"lastName,omitempty" bson:"lastName,omitempty"`
	ProfileUserTypes []UserType     `json:"profileUserTypes" bson:"profileUserTypes"`
	UserLocations    []UserLocation `json:"userLocations" bson:"userLocations"`
	RootOrgID        string         `json:"rootOrgId,omitempty" bson:"rootOrgId,omitempty"`
}

// ProfileResult is the profile read envelope.
type ProfileResult struct {
	Success bool `json:"success"`
	Data    struct {
		Response Profile `json:"response"`
	} `json:"data"`
}

// Consent statuses understood by the user service.
const (
	ConsentStatusActive  = "ACTIVE"
	ConsentStatusRevoked = "REVOKED"
)

// ObjectTypeProgram tags consent records created for program enrollment.
const ObjectTypeProgram = "program"

// Consent is one consent record submission.
type Consent struct {
	Status     string `json:"status"`
	UserID     string `json:"userId"`
	ConsumerID string `json:"consumerId"`
	ObjectID   string `json:"objectId"`
	ObjectType string `json:"objectType"`
}

// ConsentResult is the consent call's envelope.
type ConsentResult struct {
	Success bool `json:"success"`
}

// Client abstracts the user service for tests.
type Client interface {
	Profile(ctx context.Context, token, userID string) (ProfileResult, error)
	SetConsent(ctx context.Context, token string, consent Consent) (ConsentResult, error)
}

// HTTPClient talks to the real user service.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a user-service client from config.
func NewHTTPClient(cfg config.UserServiceConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Profile fetches a user profile on behalf of the caller.
func (c *HTTPClient) Profile(ctx context.Context, token, userID string) (ProfileResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/user/read/"+userID, nil)
	if err != nil {
		return ProfileResult{}, fmt.Errorf("build profile read: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return ProfileResult{}, fmt.Errorf("profile read: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ProfileResult{}, fmt.Errorf("profile read: %w: status %d", sentinel.ErrUnavailable, resp.StatusCode)
	}

	var result ProfileResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ProfileResult{}, fmt.Errorf("decode profile read: %w", err)
	}
	return result, nil
}

// SetConsent registers one consent record with the user service.
func (c *HTTPClient) SetConsent(ctx context.Context, token string, consent Consent) (ConsentResult, error) {
	body, err := json.Marshal(map[string]any{
		"request": map[string]any{"consent": consent},
	})
	if err != nil {
		return ConsentResult{}, fmt.Errorf("encode consent: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/user/consent", bytes.NewReader(body))
	if err != nil {
		return ConsentResult{}, fmt.Errorf("build consent call: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return ConsentResult{}, fmt.Errorf("consent call: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ConsentResult{}, fmt.Errorf("consent call: %w: status %d", sentinel.ErrUnavailable, resp.StatusCode)
	}

	var result ConsentResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ConsentResult{}, fmt.Errorf("decode consent call: %w", err)
	}
	return result, nil
}
