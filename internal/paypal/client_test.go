package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"ms-booking/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, orderStatus, orderAmount string, tokenCalls *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			atomic.AddInt32(tokenCalls, 1)
			user, pass, ok := r.BasicAuth()
			if !ok || user != "client-id" || pass != "client-secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "test-token",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		case "/v2/checkout/orders/ORDER-1":
			if r.Header.Get("Authorization") != "Bearer test-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":     "ORDER-1",
				"status": orderStatus,
				"purchase_units": []map[string]interface{}{
					{"amount": map[string]string{"currency_code": "EUR", "value": orderAmount}},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestClient(serverURL string) *Client {
	return NewClient(config.PayPalConfig{
		BaseURL:  serverURL,
		ClientID: "client-id",
		Secret:   "client-secret",
	}, nil)
}

func TestVerifyOrderCompleted(t *testing.T) {
	var tokenCalls int32
	server := newTestServer(t, "COMPLETED", "1963.00", &tokenCalls)
	defer server.Close()

	client := newTestClient(server.URL)

	amount, err := client.VerifyOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, 1963.0, amount)
}

func TestVerifyOrderNotCompleted(t *testing.T) {
	var tokenCalls int32
	server := newTestServer(t, "CREATED", "1963.00", &tokenCalls)
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.VerifyOrder(context.Background(), "ORDER-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not COMPLETED")
}

func TestVerifyOrderUnknown(t *testing.T) {
	var tokenCalls int32
	server := newTestServer(t, "COMPLETED", "1963.00", &tokenCalls)
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.VerifyOrder(context.Background(), "ORDER-MISSING")
	assert.Error(t, err)
}

func TestAccessTokenCached(t *testing.T) {
	var tokenCalls int32
	server := newTestServer(t, "COMPLETED", "100.00", &tokenCalls)
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.VerifyOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)
	_, err = client.VerifyOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls), "token should be fetched once and cached")
}
