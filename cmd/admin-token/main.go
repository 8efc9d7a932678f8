// Command admin-token mints a short-lived admin JWT for the reconciliation
// endpoints, signed with the service's configured admin.jwt_secret.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"game-reward-service/config"
	"game-reward-service/internal/service"
)

func main() {
	subject := flag.String("subject", "", "operator identity recorded in the audit trail (required)")
	cfgPath := flag.String("config", "", "path to config.yaml (defaults to ./config.yaml or ./config/config.yaml)")
	expiry := flag.Duration("expiry", 0, "token lifetime; defaults to admin.token_expiry")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "admin-token: -subject is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "admin-token: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ttl := cfg.Admin.TokenExpiry
	if *expiry > 0 {
		ttl = *expiry
	}

	tokens := service.NewJWTAdminTokenService(cfg.Admin.JWTSecret, ttl, cfg.Admin.Issuer)
	token, expiresAt, err := tokens.Generate(*subject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "admin-token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
}
