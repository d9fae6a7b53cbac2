package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key", TimeoutSeconds: 5})
	return client, srv
}

func TestCreateInvitations(t *testing.T) {
	var gotReq BulkCreateRequest
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/assessments/assess-1/invitations/bulk", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(BulkCreateResponse{
			Invitations: []Invitation{{ID: "inv-1", Email: "jo@acme.com"}},
			EmailSummary: &EmailSummary{
				Sent:   1,
				Failed: 1,
				Errors: []EmailError{{Email: "bad@acme.com", Error: "mailbox full"}},
			},
			Errors: []ItemError{{Index: 1, Error: "duplicate"}},
		})
	})
	defer srv.Close()

	participants := []Participant{
		{Name: "Jo Smith", Email: "jo@acme.com", Company: "Acme"},
		{Name: "Sam Doe", Email: "bad@acme.com"},
	}
	resp, err := client.CreateInvitations(context.Background(), "assess-1", participants, true)
	require.NoError(t, err)

	assert.Equal(t, "assess-1", gotReq.AssessmentID)
	assert.True(t, gotReq.Notify)
	assert.Len(t, gotReq.Participants, 2)

	assert.Len(t, resp.Invitations, 1)
	require.NotNil(t, resp.EmailSummary)
	assert.Equal(t, 1, resp.EmailSummary.Sent)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 1, resp.Errors[0].Index)
}

func TestCreateInvitations_ServerError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := client.CreateInvitations(context.Background(), "assess-1", []Participant{{Name: "a", Email: "a@b.co"}}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestCreateInvitations_OptionalFieldsOmitted(t *testing.T) {
	data, err := json.Marshal(Participant{Name: "Jo", Email: "jo@acme.com"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "company")
	assert.NotContains(t, raw, "teamSize")
	assert.NotContains(t, raw, "note")
}

func TestNotificationsEnabled(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/capabilities/email", r.URL.Path)
		json.NewEncoder(w).Encode(CapabilityResponse{EmailEnabled: true})
	})
	defer srv.Close()

	enabled, err := client.NotificationsEnabled(context.Background())
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestNotificationsEnabled_Unavailable(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})
	defer srv.Close()

	_, err := client.NotificationsEnabled(context.Background())
	assert.Error(t, err)
}
