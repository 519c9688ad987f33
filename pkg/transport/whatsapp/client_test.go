package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/nurture/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(Config{}, nil, log.Discard())
	require.ErrorIs(t, err, ErrNoURL)
}

func TestClient_SendWhatsApp(t *testing.T) {
	var (
		gotPath string
		gotKey  string
		got     message
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client, err := NewClient(Config{URL: server.URL + "/", Token: "secret", Instance: "school"}, server.Client(), log.Discard())
	require.NoError(t, err)

	require.NoError(t, client.SendWhatsApp(context.Background(), "5511987654321", "Oi Maria"))

	assert.Equal(t, "/message/sendText/school", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, message{Number: "5511987654321", Text: "Oi Maria"}, got)
}

func TestClient_SendWhatsAppGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "instance disconnected", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(Config{URL: server.URL}, server.Client(), log.Discard())
	require.NoError(t, err)

	err = client.SendWhatsApp(context.Background(), "5511987654321", "Oi")
	require.Error(t, err)

	var gatewayErr *GatewayError
	require.True(t, errors.As(err, &gatewayErr))
	assert.Equal(t, http.StatusServiceUnavailable, gatewayErr.StatusCode)
	assert.Equal(t, "instance disconnected", gatewayErr.Body)
}
