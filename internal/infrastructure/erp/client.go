// Package erp es el adaptador HTTP del catálogo ERP externo.
// Usa net/http como los demás adaptadores externos; la autorización se
// resuelve con TokenCache y un único reintento ante 401.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/Producao-api/pkg/logger"
)

const maxResponseBytes = 1 << 20 // 1 MB

// Response respuesta cruda del ERP.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK indica 2xx.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// APIError respuesta no-2xx del ERP.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("erp: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("erp: HTTP %d", e.StatusCode)
}

// Client cliente autenticado del ERP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenCache
	log        *logger.Logger
}

// NewClient construye el cliente. timeout 0 = 30 s.
func NewClient(baseURL string, tokens *TokenCache, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		log:        log.WithComponent("erp"),
	}
}

// Call envía la petición con el bearer en caché. Si la primera respuesta es 401,
// invalida la caché, fuerza un refresh y reintenta exactamente una vez; el resultado
// del segundo intento se devuelve tal cual.
func (c *Client) Call(ctx context.Context, method, path string, body any) (*Response, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("erp: serializar body: %w", err)
		}
		payload = b
	}

	token, err := c.tokens.Get(ctx, false)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, method, path, payload, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	c.log.Warn().Str("path", path).Msg("token rechazado por el ERP, refrescando")
	c.tokens.Invalidate()
	token, err = c.tokens.Get(ctx, true)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, method, path, payload, token)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, token string) (*Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("erp: crear request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("erp: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("erp: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("erp: leer respuesta: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: raw}, nil
}

type errorBody struct {
	Error *struct {
		Type        string `json:"type"`
		Message     string `json:"message"`
		Description string `json:"description"`
	} `json:"error"`
	Message string `json:"message"`
}

func apiError(resp *Response) *APIError {
	e := &APIError{StatusCode: resp.StatusCode, Body: resp.Body}
	var eb errorBody
	if err := json.Unmarshal(resp.Body, &eb); err == nil {
		switch {
		case eb.Error != nil && eb.Error.Description != "":
			e.Message = eb.Error.Description
		case eb.Error != nil && eb.Error.Message != "":
			e.Message = eb.Error.Message
		default:
			e.Message = eb.Message
		}
	}
	return e
}
