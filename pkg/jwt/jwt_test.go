package jwt_test

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/Producao-api/pkg/jwt"
)

const secret = "test-secret-key-for-unit-tests"

func TestGenerateAndParse(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "u-1", 7, "operador", "producao-api", 60)
	require.NoError(t, err)

	claims, err := pkgjwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, int64(7), claims.ClientID)
	assert.Equal(t, "operador", claims.Role)
	assert.Equal(t, "producao-api", claims.Issuer)
}

func TestGenerate_RequiereSecretYCliente(t *testing.T) {
	_, err := pkgjwt.Generate("", "u-1", 7, "admin", "x", 60)
	assert.ErrorIs(t, err, pkgjwt.ErrEmptySecret)

	_, err = pkgjwt.Generate(secret, "u-1", 0, "admin", "x", 60)
	assert.ErrorIs(t, err, pkgjwt.ErrMissingClient)
}

func TestParse_Rechazos(t *testing.T) {
	expired, err := pkgjwt.Generate(secret, "u-1", 7, "admin", "x", -1)
	require.NoError(t, err)
	_, err = pkgjwt.Parse(secret, expired)
	assert.Error(t, err, "token expirado")

	valid, err := pkgjwt.Generate(secret, "u-1", 7, "admin", "x", 60)
	require.NoError(t, err)
	_, err = pkgjwt.Parse("otro-secret-completamente-distinto", valid)
	assert.Error(t, err, "firma con otro secret")

	_, err = pkgjwt.Parse("", valid)
	assert.ErrorIs(t, err, pkgjwt.ErrEmptySecret)
}

func TestParse_SinClienteOSinExpiracion(t *testing.T) {
	sign := func(claims pkgjwt.Claims) string {
		s, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	exp := gojwt.NewNumericDate(time.Now().Add(time.Hour))

	_, err := pkgjwt.Parse(secret, sign(pkgjwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{ExpiresAt: exp},
		UserID:           "u-1",
		Role:             "admin",
	}))
	assert.ErrorIs(t, err, pkgjwt.ErrMissingClient)

	_, err = pkgjwt.Parse(secret, sign(pkgjwt.Claims{UserID: "u-1", ClientID: 7, Role: "admin"}))
	assert.Error(t, err, "sin exp el token no es aceptado")
}
