package mocks

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pix-service/internal/payload"
)

func newMockServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mux := http.NewServeMux()
	NewProvider("", "X-Signature", logger).Register(mux)
	NewDatastore("42").Register(mux)

	srv := httptest.NewServer(LoggingMiddleware(logger, mux))
	t.Cleanup(srv.Close)
	return srv
}

func createPayment(t *testing.T, srv *httptest.Server, key, body string) (*http.Response, payload.Payment) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/payments", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer TEST")
	req.Header.Set("X-Idempotency-Key", key)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var p payload.Payment
	if resp.StatusCode == http.StatusCreated {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	}
	return resp, p
}

func TestProvider_IdempotencyKeyReplaysPayment(t *testing.T) {
	srv := newMockServer(t)
	body := `{"transaction_amount":25.50,"payment_method_id":"pix","external_reference":"SALE_42"}`

	_, first := createPayment(t, srv, "key-1", body)
	_, replay := createPayment(t, srv, "key-1", body)
	_, other := createPayment(t, srv, "key-2", body)

	assert.Equal(t, first.ID, replay.ID)
	assert.NotEqual(t, first.ID, other.ID)
	require.NotNil(t, first.QR())
	assert.NotEmpty(t, first.QR().QRCodeBase64)
}

func TestProvider_RejectsInvalidAmount(t *testing.T) {
	srv := newMockServer(t)

	resp, _ := createPayment(t, srv, "key-1", `{"transaction_amount":0}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProvider_UnknownPayment(t *testing.T) {
	srv := newMockServer(t)

	resp, err := http.Get(srv.URL + "/v1/payments/1")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDatastore_PatchUnknownSaleReturnsEmpty(t *testing.T) {
	srv := newMockServer(t)

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/rest/v1/sales?id=eq.99", strings.NewReader(`{"payment_status":"paid"}`))
	require.NoError(t, err)
	req.Header.Set("apikey", "role")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestProvider_NotifyGivesUpOnHungReceiver(t *testing.T) {
	release := make(chan struct{})
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(receiver.Close)
	t.Cleanup(func() { close(release) })

	p := NewProvider("secret", "X-Signature", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, notifyTimeout, p.client.Timeout)

	p.client.Timeout = 50 * time.Millisecond
	start := time.Now()
	err := p.Notify(receiver.URL+"/webhook", "1001")

	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
