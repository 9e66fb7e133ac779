package crm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, maxRetries int) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL+"/v2/tenant/1234", "test-api-key", maxRetries, time.Millisecond)
	require.NoError(t, err)
	return c
}

func TestSearchCustomersByPhone_SendsAuthAndQuery(t *testing.T) {
	var gotAuth, gotPhone, gotActive, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPhone = r.URL.Query().Get("phone")
		gotActive = r.URL.Query().Get("active")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(customerList{Data: []Customer{{ID: 42, Name: "Jane Doe"}}})
	}, 0)

	customers, err := c.SearchCustomersByPhone(context.Background(), "+15125551234")
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-api-key", gotAuth)
	assert.Equal(t, "+15125551234", gotPhone)
	assert.Equal(t, "true", gotActive, "only active customers are searched")
	assert.Equal(t, "/v2/tenant/1234/customers", gotPath)
	require.Len(t, customers, 1)
	assert.Equal(t, int64(42), customers[0].ID)
}

// A 404 on a search means "no matches", not a failure.
func TestSearchCustomers_NotFoundIsEmptyResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "no customers"})
	}, 0)

	customers, err := c.SearchCustomersByEmail(context.Background(), "jane@example.com")
	assert.NoError(t, err)
	assert.Nil(t, customers)
}

func TestGetCustomer_NotFoundSurfacesTypedError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "no such customer"})
	}, 0)

	_, err := c.GetCustomer(context.Background(), 42)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestDoRequest_RetriesOn429(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.Header().Set("X-RateLimit-Reset", "1700000000")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(customerList{Data: []Customer{{ID: 42}}})
	}, 3)

	customers, err := c.SearchCustomersByPhone(context.Background(), "+15125551234")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, customers, 1)
}

func TestDoRequest_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("X-RateLimit-Reset", "1700000000")
		w.WriteHeader(http.StatusTooManyRequests)
	}, 2)

	_, err := c.GetCustomer(context.Background(), 42)
	require.Error(t, err)

	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, time.Unix(1700000000, 0), rl.ResetTimestamp)
	assert.Equal(t, 3, calls, "initial attempt plus two retries")
}

func TestDoRequest_ServerErrorNotRetried(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
	}, 3)

	_, err := c.GetCustomer(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var notFound *NotFoundError
	assert.False(t, errors.As(err, &notFound))
	assert.Contains(t, err.Error(), "boom")
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient("https://api.fieldserve.example/v2/tenant/1234", "key", -1, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, c.MaxRetries)
	assert.Equal(t, time.Second, c.RetryInitial)
}
