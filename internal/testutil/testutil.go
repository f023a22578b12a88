// Package testutil provides testing utilities and helpers.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/campusconnect/internal/middleware"
	"github.com/HammerMeetNail/campusconnect/internal/models"
)

// AssertStatusCode checks if the response has the expected status code.
func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// AssertJSONContains checks if the JSON response contains expected key-value pairs.
func AssertJSONContains(t *testing.T, body []byte, key string, expected interface{}) {
	t.Helper()
	result := ParseJSONResponse(t, body)
	if result[key] != expected {
		t.Errorf("expected %s to be %v, got %v", key, expected, result[key])
	}
}

// NewTestRequest creates a new HTTP request for testing.
func NewTestRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewTestRequestWithJSON creates a new HTTP request with JSON body.
func NewTestRequestWithJSON(t *testing.T, method, path string, data interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return NewTestRequest(method, path, strings.NewReader(string(body)))
}

// AsParty sets the gateway identity headers for party on req.
func AsParty(req *http.Request, party models.PartyRef) *http.Request {
	req.Header.Set(middleware.PartyIDHeader, party.ID)
	req.Header.Set(middleware.PartyKindHeader, string(party.Kind))
	return req
}

// RandomUUID generates a random UUID for testing.
func RandomUUID() uuid.UUID {
	return uuid.New()
}

// RandomParty returns a party of the given kind with a unique id.
func RandomParty(kind models.PartyKind) models.PartyRef {
	return models.PartyRef{ID: string(kind) + "-" + uuid.New().String()[:8], Kind: kind}
}

// ParseJSONResponse parses a JSON response body into a map.
func ParseJSONResponse(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v", err)
	}
	return result
}
