// Package jwt firma y valida los tokens de sesión. El client_id del token define
// el tenant sobre el que operan todas las rutas protegidas.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrEmptySecret   = errors.New("jwt: secret vacío")
	ErrMissingClient = errors.New("jwt: claims sin client_id")
)

// Claims claims registrados más usuario, cliente (tenant) y rol.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	ClientID int64  `json:"client_id"`
	Role     string `json:"role"`
}

// Generate firma un token HS256 válido por expMinutes.
func Generate(secret, userID string, clientID int64, role, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	if clientID <= 0 {
		return "", ErrMissingClient
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		UserID:   userID,
		ClientID: clientID,
		Role:     role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma (solo HMAC) y expiración, y exige client_id.
func Parse(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("jwt: token inválido")
	}
	if claims.ClientID <= 0 {
		return nil, ErrMissingClient
	}
	return claims, nil
}
