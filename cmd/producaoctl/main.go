// producaoctl herramientas de operación de la API.
//
//	producaoctl token -client-id 7 [-role operador] [-minutes 525600]
//	    emite un JWT de servicio (p. ej. para un cron que llama POST /api/imap/import).
//	producaoctl seal < senha.txt
//	    cifra la contraseña de un buzón con CREDENTIAL_KEY para guardarla en imap_configs.
//
// Lee JWT_*, CREDENTIAL_KEY, etc. de la misma configuración que la API.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/Producao-api/pkg/config"
	"github.com/jhoicas/Producao-api/pkg/jwt"
	"github.com/jhoicas/Producao-api/pkg/secret"
)

func main() {
	if len(os.Args) < 2 {
		fail("uso: producaoctl <token|seal> [flags]")
	}
	cfg, err := config.Load()
	if err != nil {
		fail("cargar configuración: %v", err)
	}
	switch os.Args[1] {
	case "token":
		runToken(cfg, os.Args[2:])
	case "seal":
		runSeal(cfg)
	default:
		fail("subcomando desconocido: %s", os.Args[1])
	}
}

func runToken(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	clientID := fs.Int64("client-id", 0, "Obligatorio: cliente (tenant) del token")
	role := fs.String("role", "operador", "Rol: admin | operador | auditor")
	subject := fs.String("subject", "", "Usuario/servicio; por defecto svc-<uuid>")
	minutes := fs.Int("minutes", 0, "Validez en minutos; por defecto JWT_EXPIRATION_MINUTES")
	_ = fs.Parse(args)

	if *clientID <= 0 {
		fail("--client-id es obligatorio")
	}
	r := strings.ToLower(strings.TrimSpace(*role))
	switch r {
	case "admin", "operador", "auditor":
	default:
		fail("rol desconocido: %s", *role)
	}
	sub := strings.TrimSpace(*subject)
	if sub == "" {
		sub = "svc-" + uuid.New().String()
	}
	exp := *minutes
	if exp <= 0 {
		exp = cfg.JWT.Expiration
	}

	tok, err := jwt.Generate(cfg.JWT.Secret, sub, *clientID, r, cfg.JWT.Issuer, exp)
	if err != nil {
		fail("generar token: %v", err)
	}
	fmt.Println(tok)
}

// runSeal lee la contraseña de stdin (primera línea) para no dejarla en el historial del shell.
func runSeal(cfg *config.Config) {
	if cfg.Secret.CredentialKey == "" {
		fail("CREDENTIAL_KEY no configurada")
	}
	box, err := secret.New(cfg.Secret.CredentialKey)
	if err != nil {
		fail("clave de credenciales: %v", err)
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		fail("leer contraseña de stdin: %v", err)
	}
	plain := strings.TrimRight(line, "\r\n")
	if plain == "" {
		fail("contraseña vacía")
	}
	sealed, err := box.Seal(plain)
	if err != nil {
		fail("cifrar: %v", err)
	}
	fmt.Println(sealed)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
