package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const quotesLatestPath = "/v1/cryptocurrency/quotes/latest"

var (
	// ErrSymbolMissing signals that the provider payload carried no entry for
	// the requested symbol.
	ErrSymbolMissing = errors.New("symbol missing from provider payload")
	// ErrQuoteMissing signals that the symbol entry carried no USD quote object.
	ErrQuoteMissing = errors.New("usd quote missing from provider payload")
	// ErrPriceMissing signals that the USD quote carried no parsable price.
	ErrPriceMissing = errors.New("price missing from usd quote")
)

// CMCOptions parameterise the CoinMarketCap fetcher.
type CMCOptions struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
	Debug     bool
}

// CMC fetches latest quotes from the CoinMarketCap pro API.
type CMC struct {
	opts    CMCOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCMC constructs a CoinMarketCap quote fetcher.
func NewCMC(opts CMCOptions, logger zerolog.Logger) *CMC {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://pro-api.coinmarketcap.com"
	}

	return &CMC{
		opts:    opts,
		logger:  logger.With().Str("component", "cmc_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Fetch retrieves the latest USD quote for one symbol. A whole-quote failure
// (transport error, non-2xx status, malformed body, missing symbol entry or
// USD quote object, unparsable price) is returned as an error; an unparsable
// percent field degrades to a nil field on an otherwise valid quote.
func (c *CMC) Fetch(ctx context.Context, symbol string) (Quote, error) {
	if c.opts.APIKey == "" {
		return Quote{}, errors.New("cmc api key not configured")
	}

	endpoint := c.baseURL + quotesLatestPath + "?symbol=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CMC_PRO_API_KEY", c.opts.APIKey)
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "cmcwatcher/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, err
	}

	if c.opts.Debug {
		c.logger.Debug().Str("symbol", symbol).RawJSON("payload", compactJSON(payloadBytes)).Msg("cmc response received")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Quote{}, parseHTTPError(resp.StatusCode, payloadBytes)
	}

	var res quotesResponse
	if err := json.Unmarshal(payloadBytes, &res); err != nil {
		return Quote{}, fmt.Errorf("decode cmc payload: %w", err)
	}

	entry, ok := res.Data[symbol]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrSymbolMissing, symbol)
	}

	usd, ok := entry.Quote["USD"]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrQuoteMissing, symbol)
	}

	price := parseDecimal(usd.Price)
	if price == nil {
		return Quote{}, fmt.Errorf("%w: %s", ErrPriceMissing, symbol)
	}

	quote := Quote{
		Symbol:           symbol,
		Price:            *price,
		PercentChange1h:  parseDecimal(usd.PercentChange1h),
		PercentChange24h: parseDecimal(usd.PercentChange24h),
	}
	if entry.Symbol != "" {
		quote.Symbol = entry.Symbol
	}

	if c.opts.Debug {
		c.logger.Debug().Str("symbol", quote.Symbol).
			Str("price", quote.Price.String()).
			Msg("cmc quote parsed")
	}

	return quote, nil
}

type quotesResponse struct {
	Data map[string]quoteEntry `json:"data"`
}

type quoteEntry struct {
	Symbol string              `json:"symbol"`
	Quote  map[string]usdQuote `json:"quote"`
}

// usdQuote keeps numeric fields raw so a single non-numeric value degrades
// that field instead of failing the whole decode.
type usdQuote struct {
	Price            json.RawMessage `json:"price"`
	PercentChange1h  json.RawMessage `json:"percent_change_1h"`
	PercentChange24h json.RawMessage `json:"percent_change_24h"`
}

// parseDecimal turns a raw JSON value into a decimal. Null, absent, and
// non-numeric values all come back nil. Numbers carried as JSON strings are
// accepted, matching the provider's occasional string encoding.
func parseDecimal(raw json.RawMessage) *decimal.Decimal {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

type statusEnvelope struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

func parseHTTPError(status int, payload []byte) error {
	var env statusEnvelope
	if err := json.Unmarshal(payload, &env); err == nil && env.Status.ErrorMessage != "" {
		return fmt.Errorf("cmc api error (%d): %s", status, env.Status.ErrorMessage)
	}
	if len(payload) > 0 {
		return fmt.Errorf("cmc api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("cmc api error (%d)", status)
}

func compactJSON(payload []byte) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return []byte(`"<non-json body>"`)
	}
	return buf.Bytes()
}

var _ QuoteFetcher = (*CMC)(nil)
