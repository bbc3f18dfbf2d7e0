package finnhub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xhttp "PriceSim/pkg/http"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	now := time.Unix(1_700_000_000, 0)
	return New("key", srv.URL+"/", WithClock(func() time.Time { return now }))
}

func TestQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "key", r.Header.Get("X-Finnhub-Token"))
		_, _ = w.Write([]byte(`{"c":190.1,"h":191,"l":0,"o":189,"pc":188.5,"t":1}`))
	})

	q, err := c.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.AssetID)
	assert.Equal(t, int64(1_700_000_000), q.ObservedAt)
	assert.Equal(t, 190.1, q.Price)
	assert.Equal(t, 191.0, q.High)
	assert.Equal(t, 190.1, q.Low)
	assert.Equal(t, 189.0, q.Open)
	assert.Equal(t, 188.5, q.PreviousClose)
}

func TestQuoteZeroPriceIsNoQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"c":0,"h":0,"l":0,"o":0,"pc":0}`))
	})
	_, err := c.Quote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNoQuote)
}

func TestQuoteHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.Quote(context.Background(), "AAPL")
	var se *xhttp.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
}

func TestQuoteHonoursContextTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Quote(ctx, "AAPL")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
