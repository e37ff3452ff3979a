package operator

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/Ashenafi-pixel/prizewheel/spinlog"
)

// Client tells an operator backend about settled spins. Calls are GETs with
// the parameters in the query string; with a secret set they carry an
// HMAC-SHA256 "signature" over the parameter values sorted by key.
type Client struct {
	endpoint string
	secret   string
	http     *http.Client
}

type Response struct {
	Code       int    `json:"code"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func NewClient(endpoint, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		secret:   secret,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) call(ctx context.Context, params map[string]string) (*Response, error) {
	values := url.Values{}
	for k, v := range params {
		if v != "" {
			values.Set(k, v)
		}
	}
	if c.secret != "" {
		values.Set("signature", Sign(values, c.secret))
	}
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, err
	}
	u.RawQuery = values.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	out := &Response{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return out, err
	}
	// operators that answer with an empty body are fine
	_ = json.Unmarshal(body, out)
	out.StatusCode = resp.StatusCode
	return out, nil
}

// Sign is the request signature: HMAC-SHA256 of the values, concatenated in
// key order, skipping "action" and "signature".
func Sign(v url.Values, secret string) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		if k == "action" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf := make([]byte, 0, 256)
	for _, k := range keys {
		buf = append(buf, v.Get(k)...)
	}
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(buf)
	return hex.EncodeToString(m.Sum(nil))
}

// Verify checks the signature of a received query.
func Verify(v url.Values, secret string) bool {
	got, err := hex.DecodeString(v.Get("signature"))
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(Sign(v, secret))
	return hmac.Equal(got, want)
}

// SpinSettled reports one outcome.
func (c *Client) SpinSettled(ctx context.Context, e spinlog.Entry) (*Response, error) {
	return c.call(ctx, map[string]string{
		"action":       "spin_settled",
		"spin_id":      e.ID,
		"product_id":   e.ProductID,
		"product_name": e.ProductName,
		"sector_index": strconv.Itoa(e.Index),
		"angle":        strconv.FormatFloat(e.Angle, 'f', -1, 64),
		"timestamp":    e.Timestamp.UTC().Format(time.RFC3339Nano),
		"source":       e.Source,
		"ip_address":   e.IPAddress,
	})
}

// Sink forwards every logged spin to the operator. A non-2xx answer or a
// non-zero code is a write error, which the spin log reports and moves on.
func (c *Client) Sink() spinlog.Sink {
	return spinlog.SinkFunc(func(e spinlog.Entry) error {
		resp, err := c.SpinSettled(context.Background(), e)
		if err != nil {
			return fmt.Errorf("operator: %w", err)
		}
		if resp.StatusCode/100 != 2 || resp.Code != 0 {
			return fmt.Errorf("operator: spin %s rejected: http %d code %d %s", e.ID, resp.StatusCode, resp.Code, resp.Message)
		}
		return nil
	})
}
