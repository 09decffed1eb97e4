package erp

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// OAuthRefresher obtiene access tokens con el grant refresh_token del ERP.
// Conserva el refresh token rotado que devuelve el proveedor.
type OAuthRefresher struct {
	cfg        *oauth2.Config
	httpClient *http.Client

	mu           sync.Mutex
	refreshToken string
}

// NewOAuthRefresher construye el refresher. tokenURL es el endpoint de token del ERP.
func NewOAuthRefresher(tokenURL, clientID, clientSecret, refreshToken string, httpClient *http.Client) *OAuthRefresher {
	return &OAuthRefresher{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient:   httpClient,
		refreshToken: refreshToken,
	}
}

// Refresh implementa TokenSource.
func (r *OAuthRefresher) Refresh(ctx context.Context) (string, error) {
	r.mu.Lock()
	rt := r.refreshToken
	r.mu.Unlock()
	if rt == "" {
		return "", errors.New("erp: refresh token no configurado")
	}

	if r.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	}
	// Expiry cero en el token semilla fuerza el intercambio contra el endpoint.
	tok, err := r.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: rt}).Token()
	if err != nil {
		return "", err
	}
	if tok.RefreshToken != "" {
		r.mu.Lock()
		r.refreshToken = tok.RefreshToken
		r.mu.Unlock()
	}
	return tok.AccessToken, nil
}
