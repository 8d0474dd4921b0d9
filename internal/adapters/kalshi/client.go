package kalshi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

const (
	defaultBaseURL = "https://api.elections.kalshi.com"
	apiPrefix      = "/trade-api/v2"

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client es el HTTP client de Kalshi con firma RSA-PSS y retries.
//
// El rate limiting global no vive aquí: el exchange completo se envuelve con
// el gate de throttle, así scanner, entradas y polling comparten un único
// presupuesto de requests.
type Client struct {
	http      *http.Client
	baseURL   string
	signer    *Signer // nil = solo endpoints públicos
	retryWait time.Duration
}

// NewClient crea un Client contra baseURL (vacío = producción).
// signer puede ser nil para acceso de solo lectura a endpoints públicos.
func NewClient(baseURL string, signer *Signer) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:      &http.Client{Timeout: 15 * time.Second},
		baseURL:   baseURL,
		signer:    signer,
		retryWait: baseRetryWait,
	}
}

// get hace un GET con retries. path es relativo al prefijo del API y puede
// llevar query string.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	full := path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return c.doWithRetry(ctx, http.MethodGet, full, nil, out)
}

// post hace un POST JSON con retries.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("kalshi: marshal body: %w", err)
	}
	return c.doWithRetry(ctx, http.MethodPost, path, b, out)
}

// del hace un DELETE con retries.
func (c *Client) del(ctx context.Context, path string, out any) error {
	return c.doWithRetry(ctx, http.MethodDelete, path, nil, out)
}

// doWithRetry ejecuta la request con backoff exponencial y jitter.
// 429 y 5xx se reintentan; 4xx se devuelve como RejectionError sin reintentar;
// errores de red agotados se devuelven como TransientError.
func (c *Client) doWithRetry(ctx context.Context, method, path string, body []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, attempt-1); err != nil {
				return err
			}
		}

		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			slog.Warn("kalshi: rate limited by API", "attempt", attempt+1, "path", path)
			lastErr = fmt.Errorf("status 429")
			continue
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, respBody)
			continue
		case resp.StatusCode >= 400:
			return parseRejection(resp.StatusCode, respBody)
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("kalshi: decode response: %w", err)
			}
		}
		return nil
	}
	return &domain.TransientError{
		Op:  method + " " + path,
		Err: fmt.Errorf("exhausted %d retries: %w", maxRetries, lastErr),
	}
}

// newRequest construye la request firmada. La firma cubre timestamp + método
// + path sin query, según el esquema de Kalshi.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	fullPath := apiPrefix + path
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+fullPath, reader)
	if err != nil {
		return nil, fmt.Errorf("kalshi: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.signer != nil {
		signPath := fullPath
		if i := bytes.IndexByte([]byte(signPath), '?'); i >= 0 {
			signPath = signPath[:i]
		}
		if err := c.signer.Sign(req, method, signPath); err != nil {
			return nil, fmt.Errorf("kalshi: sign request: %w", err)
		}
	}
	return req, nil
}

// parseRejection convierte un 4xx en RejectionError con el código del API.
func parseRejection(status int, body []byte) error {
	var wire struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error.Code != "" {
		return &domain.RejectionError{Code: wire.Error.Code, Reason: wire.Error.Message}
	}
	return &domain.RejectionError{
		Code:   fmt.Sprintf("http_%d", status),
		Reason: string(body),
	}
}

// sleep espera con backoff exponencial y jitter, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) error {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	wait += time.Duration(rand.Int63n(int64(c.retryWait)))
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
