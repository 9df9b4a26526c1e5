// Command token-issuer prints a signed maintainer token for the rate-table
// endpoints. It reads the same configuration as the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phrazzld/cohort-api/internal/config"
	"github.com/phrazzld/cohort-api/internal/service/auth"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default: ./config.yaml if present)")
	subject := flag.String("subject", "", "token subject, usually the maintainer's name")
	scopes := flag.String("scopes", auth.ScopeRatesWrite, "comma-separated scopes to grant")
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token-issuer: %v\n", err)
		os.Exit(1)
	}

	if err := issue(context.Background(), os.Stdout, cfg.Auth, *subject, splitScopes(*scopes)); err != nil {
		fmt.Fprintf(os.Stderr, "token-issuer: %v\n", err)
		os.Exit(1)
	}
}

// issue signs a token for subject and writes it to out.
func issue(ctx context.Context, out io.Writer, cfg config.AuthConfig, subject string, scopes []string) error {
	svc, err := auth.NewJWTService(cfg)
	if err != nil {
		return err
	}

	token, err := svc.GenerateToken(ctx, subject, scopes...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, token)
	return err
}

func splitScopes(s string) []string {
	var scopes []string
	for _, scope := range strings.Split(s, ",") {
		if scope = strings.TrimSpace(scope); scope != "" {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}
