package erp

import (
	"context"
	"fmt"
	"sync"
)

// TokenSource obtiene un bearer nuevo del proveedor de identidad del ERP.
type TokenSource interface {
	Refresh(ctx context.Context) (string, error)
}

// TokenCache credencial bearer compartida por el cliente y los workers de sincronización.
// Estados: Unset → Valid → (Invalidate) → Unset. No se lleva expiración local:
// la validez se corrige de forma reactiva ante un 401.
// El mutex no se mantiene durante el refresh; dos misses simultáneos pueden refrescar ambos.
type TokenCache struct {
	source TokenSource

	mu    sync.Mutex
	token string
	valid bool
}

// NewTokenCache construye la caché vacía (Unset).
func NewTokenCache(source TokenSource) *TokenCache {
	return &TokenCache{source: source}
}

// Get devuelve el token en caché si es válido y no se fuerza el refresh; si no, refresca.
func (c *TokenCache) Get(ctx context.Context, forceRefresh bool) (string, error) {
	if !forceRefresh {
		c.mu.Lock()
		if c.valid {
			tok := c.token
			c.mu.Unlock()
			return tok, nil
		}
		c.mu.Unlock()
	}

	tok, err := c.source.Refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("erp: refrescar token: %w", err)
	}

	c.mu.Lock()
	c.token = tok
	c.valid = true
	c.mu.Unlock()
	return tok, nil
}

// Invalidate pasa a Unset sin condiciones.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.token = ""
	c.mu.Unlock()
}

// Valid indica si hay un token en caché.
func (c *TokenCache) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid
}
