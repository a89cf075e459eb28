// Command token mints a bearer token for local testing against cmd/api.
//
//	go run ./cmd/token -user 1 -role ADMIN
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/models"
)

func main() {
	userID := flag.Int64("user", 0, "user ID placed in the token subject")
	role := flag.String("role", models.RoleCustomer, "CUSTOMER or ADMIN")
	flag.Parse()

	if *userID <= 0 {
		fmt.Fprintln(os.Stderr, "-user must be a positive user ID")
		os.Exit(2)
	}
	if *role != models.RoleCustomer && *role != models.RoleAdmin {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load config: %v\n", err)
		os.Exit(1)
	}

	token, err := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Issue(*userID, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
