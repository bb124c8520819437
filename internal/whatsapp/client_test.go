package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSend(t *testing.T) {
	var got SendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v20.0/PHONE_ID/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"messaging_product":"whatsapp","contacts":[{"input":"521","wa_id":"521"}],"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := NewClient("v20.0", "PHONE_ID", "secret").WithBaseURL(srv.URL + "/")
	msg, err := BuildText("521", "hola")
	require.NoError(t, err)

	resp, err := c.Send(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "wamid.1", resp.Messages[0].ID)
	assert.Equal(t, msg, got)
}

func TestClientSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer srv.Close()

	c := NewClient("v20.0", "PHONE_ID", "bad").WithBaseURL(srv.URL)
	msg, _ := BuildText("521", "hola")

	_, err := c.Send(context.Background(), msg)
	var gerr *GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, http.StatusUnauthorized, gerr.Status)
	assert.Contains(t, gerr.Body, "Invalid OAuth")
}

func TestClientSendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient("v20.0", "PHONE_ID", "secret").WithBaseURL(srv.URL)
	msg, _ := BuildText("521", "hola")

	_, err := c.Send(context.Background(), msg)
	var gerr *GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Zero(t, gerr.Status)
	assert.Error(t, gerr.Unwrap())
}
