package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"normex/internal/exchange"

	"github.com/tidwall/gjson"
)

const defaultAPIURL = "https://api.hyperliquid.xyz"

// client wraps the venue's two JSON endpoints: read-only /info and the
// signed /exchange action endpoint.
type client struct {
	baseURL string
	http    *http.Client
	signer  *Signer

	nonceMu   sync.Mutex
	lastNonce uint64

	metaMu sync.RWMutex
	meta   map[string]assetInfo // coin -> meta, loaded lazily
}

type assetInfo struct {
	index      int
	szDecimals int
}

func newClient(baseURL string, timeout time.Duration, signer *Signer) *client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultAPIURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		signer:  signer,
	}
}

func (c *client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request failed: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, exchange.WrapVenueError(exchange.KindExchangeUnavailable, exchange.VenueHyperliquid, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, exchange.WrapVenueError(exchange.KindExchangeUnavailable, exchange.VenueHyperliquid, err)
	}
	if resp.StatusCode >= 500 {
		return nil, exchange.NewError(exchange.KindExchangeUnavailable, exchange.VenueHyperliquid,
			"venue returned %d: %s", resp.StatusCode, truncate(out))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, exchange.NewError(exchange.KindOrderFailed, exchange.VenueHyperliquid,
			"venue returned %d: %s", resp.StatusCode, truncate(out))
	}
	return out, nil
}

func truncate(b []byte) string {
	const max = 256
	s := string(b)
	if len(s) > max {
		return s[:max] + "…"
	}
	return s
}

func (c *client) info(ctx context.Context, payload any) ([]byte, error) {
	return c.post(ctx, "/info", payload)
}

// nonce returns a strictly increasing millisecond timestamp; the venue
// rejects reused nonces per wallet.
func (c *client) nonce() uint64 {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()
	n := uint64(time.Now().UnixMilli())
	if n <= c.lastNonce {
		n = c.lastNonce + 1
	}
	c.lastNonce = n
	return n
}

type signedRequest struct {
	Action    json.RawMessage `json:"action"`
	Nonce     uint64          `json:"nonce"`
	Signature Signature       `json:"signature"`
}

// sendAction signs and submits one exchange action, returning the parsed
// response body after the venue-level status check.
func (c *client) sendAction(ctx context.Context, action any) (gjson.Result, error) {
	actionJSON, err := json.Marshal(action)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encoding action failed: %w", err)
	}
	nonce := c.nonce()
	sig, err := c.signer.SignAction(actionJSON, nonce)
	if err != nil {
		return gjson.Result{}, err
	}
	body, err := c.post(ctx, "/exchange", signedRequest{
		Action:    actionJSON,
		Nonce:     nonce,
		Signature: sig,
	})
	if err != nil {
		return gjson.Result{}, err
	}
	parsed := gjson.ParseBytes(body)
	if parsed.Get("status").String() != "ok" {
		return gjson.Result{}, mapActionError(parsed)
	}
	return parsed, nil
}

// mapActionError classifies a rejected action by its message text; the
// venue reports rejections as free-form strings.
func mapActionError(parsed gjson.Result) error {
	msg := parsed.Get("response").String()
	if msg == "" {
		msg = parsed.Raw
	}
	return classifyVenueMessage(msg)
}

func classifyVenueMessage(msg string) error {
	lower := strings.ToLower(msg)
	kind := exchange.KindOrderFailed
	switch {
	case strings.Contains(lower, "insufficient"):
		kind = exchange.KindInsufficientBalance
	case strings.Contains(lower, "minimum"):
		kind = exchange.KindOrderTooSmall
	}
	return &exchange.Error{Kind: kind, Venue: exchange.VenueHyperliquid, Message: kind.Category(), Raw: msg}
}

// asset resolves a coin to its venue index and size decimals, loading the
// perp universe on first use.
func (c *client) asset(ctx context.Context, coin string) (assetInfo, error) {
	c.metaMu.RLock()
	info, ok := c.meta[coin]
	c.metaMu.RUnlock()
	if ok {
		return info, nil
	}
	body, err := c.info(ctx, map[string]string{"type": "meta"})
	if err != nil {
		return assetInfo{}, err
	}
	universe := gjson.GetBytes(body, "universe")
	if !universe.IsArray() {
		return assetInfo{}, exchange.NewError(exchange.KindExchangeUnavailable, exchange.VenueHyperliquid,
			"meta response missing universe")
	}
	meta := make(map[string]assetInfo, len(universe.Array()))
	for i, entry := range universe.Array() {
		meta[entry.Get("name").String()] = assetInfo{
			index:      i,
			szDecimals: int(entry.Get("szDecimals").Int()),
		}
	}
	c.metaMu.Lock()
	c.meta = meta
	c.metaMu.Unlock()
	info, ok = meta[coin]
	if !ok {
		return assetInfo{}, exchange.NewError(exchange.KindSymbolNotFound, exchange.VenueHyperliquid,
			"%s is not in the perp universe", coin)
	}
	return info, nil
}
