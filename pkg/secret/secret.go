// Package secret cifra credenciales en reposo (contraseñas IMAP) con NaCl secretbox.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrInvalidKey la clave no tiene 32 bytes.
var ErrInvalidKey = errors.New("secret: la clave debe tener exactamente 32 bytes")

// Box cifra y descifra con una clave fija de 32 bytes.
type Box struct {
	key [32]byte
}

// New construye el Box. key debe tener 32 bytes.
func New(key string) (*Box, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}
	b := &Box{}
	copy(b.key[:], key)
	return b, nil
}

// Seal cifra plaintext y devuelve nonce+ciphertext en base64.
func (b *Box) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secret: generar nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open descifra un valor producido por Seal.
func (b *Box) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("secret: base64: %w", err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", errors.New("secret: texto cifrado demasiado corto")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", errors.New("secret: no se pudo descifrar")
	}
	return string(plain), nil
}
