package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestCMC(t *testing.T, handler http.HandlerFunc) *CMC {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCMC(CMCOptions{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: time.Second,
	}, noopLogger())
}

func quotePayload(symbol, price, pc1h, pc24h string) string {
	return fmt.Sprintf(`{"data":{"%s":{"symbol":"%s","quote":{"USD":{"price":%s,"percent_change_1h":%s,"percent_change_24h":%s}}}}}`,
		symbol, symbol, price, pc1h, pc24h)
}

func TestFetchSuccess(t *testing.T) {
	c := newTestCMC(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, quotePayload("BTC", "50000.1234", "6.2", "-1.5"))
	})

	quote, err := c.Fetch(context.Background(), "BTC")
	require.NoError(t, err)
	require.Equal(t, "BTC", quote.Symbol)
	require.Equal(t, "50000.1234", quote.Price.String())
	require.NotNil(t, quote.PercentChange1h)
	require.Equal(t, "6.2", quote.PercentChange1h.String())
	require.NotNil(t, quote.PercentChange24h)
	require.Equal(t, "-1.5", quote.PercentChange24h.String())
}

func TestFetchSendsKeyAndSymbol(t *testing.T) {
	var gotKey, gotSymbol string
	c := newTestCMC(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-CMC_PRO_API_KEY")
		gotSymbol = r.URL.Query().Get("symbol")
		fmt.Fprint(w, quotePayload("ETH", "1", "0", "0"))
	})

	_, err := c.Fetch(context.Background(), "ETH")
	require.NoError(t, err)
	require.Equal(t, "test-key", gotKey)
	require.Equal(t, "ETH", gotSymbol)
}

func TestFetchSymbolMissing(t *testing.T) {
	c := newTestCMC(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{}}`)
	})

	_, err := c.Fetch(context.Background(), "BTC")
	require.ErrorIs(t, err, ErrSymbolMissing)
}

func TestFetchQuoteMissing(t *testing.T) {
	c := newTestCMC(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"BTC":{"symbol":"BTC","quote":{}}}}`)
	})

	_, err := c.Fetch(context.Background(), "BTC")
	require.ErrorIs(t, err, ErrQuoteMissing)
}

func TestFetchHTTPError(t *testing.T) {
	c := newTestCMC(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":{"error_code":1002,"error_message":"API key missing."}}`)
	})

	_, err := c.Fetch(context.Background(), "BTC")
	require.Error(t, err)
	require.Contains(t, err.Error(), "API key missing")
}

func TestFetchMalformedBody(t *testing.T) {
	c := newTestCMC(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":`)
	})

	_, err := c.Fetch(context.Background(), "BTC")
	require.Error(t, err)
}

func TestFetchUnparsablePercentDegradesField(t *testing.T) {
	c := newTestCMC(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quotePayload("BTC", "50000", `"oops"`, "null"))
	})

	quote, err := c.Fetch(context.Background(), "BTC")
	require.NoError(t, err)
	require.Nil(t, quote.PercentChange1h)
	require.Nil(t, quote.PercentChange24h)
	require.Equal(t, "50000", quote.Price.String())
}

func TestFetchUnparsablePriceVoidsQuote(t *testing.T) {
	c := newTestCMC(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quotePayload("BTC", `"not-a-number"`, "1.0", "1.0"))
	})

	_, err := c.Fetch(context.Background(), "BTC")
	require.ErrorIs(t, err, ErrPriceMissing)
}

func TestFetchStringNumbersAccepted(t *testing.T) {
	c := newTestCMC(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quotePayload("TRX", `"0.12"`, `"-7.5"`, `"3.25"`))
	})

	quote, err := c.Fetch(context.Background(), "TRX")
	require.NoError(t, err)
	require.Equal(t, "0.12", quote.Price.String())
	require.Equal(t, "-7.5", quote.PercentChange1h.String())
}

func TestFetchMissingAPIKey(t *testing.T) {
	c := NewCMC(CMCOptions{BaseURL: "http://127.0.0.1:0"}, noopLogger())
	_, err := c.Fetch(context.Background(), "BTC")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrSymbolMissing))
}
