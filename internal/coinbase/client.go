package coinbase

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// APIError is a non-success reply from the exchange, carrying its "message" field.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coinbase API error: status %d: %s", e.Status, e.Message)
}

// Client talks to the Coinbase Exchange REST API.
type Client struct {
	BaseURL    string
	APIKey     string
	APISecret  string // base64, as issued by the exchange
	Passphrase string
	// Delay is slept after every call to stay under the rate limit.
	Delay  time.Duration
	Client *http.Client

	now func() time.Time
}

// NewClient creates a client with optional proxy support.
func NewClient(baseURL, apiKey, apiSecret, passphrase string, delay time.Duration, proxyURL string) *Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		APISecret:  apiSecret,
		Passphrase: passphrase,
		Delay:      delay,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		now: time.Now,
	}
}

// Ticker is the latest trade and book top for a product.
type Ticker struct {
	Price  float64 `json:"price,string"`
	Bid    float64 `json:"bid,string"`
	Ask    float64 `json:"ask,string"`
	Volume float64 `json:"volume,string"`
}

// Candle is one OHLCV bucket.
type Candle struct {
	Time   time.Time
	Low    float64
	High   float64
	Open   float64
	Close  float64
	Volume float64
}

// Ticker fetches the current ticker of product.
func (c *Client) Ticker(ctx context.Context, product string) (Ticker, error) {
	var t Ticker
	if err := c.do(ctx, http.MethodGet, "/products/"+product+"/ticker", nil, &t); err != nil {
		return Ticker{}, fmt.Errorf("fetch ticker: %w", err)
	}
	return t, nil
}

// Candles fetches candles of the given granularity covering [start, end].
// The exchange returns them newest first.
func (c *Client) Candles(ctx context.Context, product string, start, end time.Time, granularity time.Duration) ([]Candle, error) {
	q := url.Values{}
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	q.Set("granularity", strconv.Itoa(int(granularity/time.Second)))

	var raw [][]float64
	if err := c.do(ctx, http.MethodGet, "/products/"+product+"/candles?"+q.Encode(), nil, &raw); err != nil {
		return nil, fmt.Errorf("fetch candles: %w", err)
	}
	candles := make([]Candle, 0, len(raw))
	for _, r := range raw {
		if len(r) < 6 {
			return nil, fmt.Errorf("fetch candles: malformed candle %v", r)
		}
		candles = append(candles, Candle{
			Time:   time.Unix(int64(r[0]), 0),
			Low:    r[1],
			High:   r[2],
			Open:   r[3],
			Close:  r[4],
			Volume: r[5],
		})
	}
	return candles, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if err := c.sign(req, path, body); err != nil {
		return err
	}

	log.Debug().Str("method", method).Str("path", path).Msg("coinbase request")
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	defer c.pause(ctx)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var apiErr struct {
		Message string `json:"message"`
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = json.Unmarshal(data, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Message}
	}
	// Some endpoints report failures in a 200 body.
	if len(data) > 0 && data[0] == '{' {
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return &APIError{Status: resp.StatusCode, Message: apiErr.Message}
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// sign adds the CB-ACCESS-* headers: base64(HMAC-SHA256(secret, timestamp+method+path+body)).
func (c *Client) sign(req *http.Request, path string, body []byte) error {
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey == "" {
		return nil
	}
	key, err := base64.StdEncoding.DecodeString(c.APISecret)
	if err != nil {
		return fmt.Errorf("decode api secret: %w", err)
	}
	timestamp := strconv.FormatInt(c.now().Unix(), 10)

	h := hmac.New(sha256.New, key)
	h.Write([]byte(timestamp + req.Method + path))
	h.Write(body)

	req.Header.Set("CB-ACCESS-KEY", c.APIKey)
	req.Header.Set("CB-ACCESS-SIGN", base64.StdEncoding.EncodeToString(h.Sum(nil)))
	req.Header.Set("CB-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("CB-ACCESS-PASSPHRASE", c.Passphrase)
	return nil
}

func (c *Client) pause(ctx context.Context) {
	if c.Delay <= 0 {
		return
	}
	t := time.NewTimer(c.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
