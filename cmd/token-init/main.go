// Command token-init seeds the credential store with an initial Saxo token
// pair obtained out-of-band (for example from the developer portal). The
// gateway refreshes from there on its own.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/tradebridge/saxogw/internal/domain"
	"github.com/tradebridge/saxogw/pkg/credstore"
)

func main() {
	_ = godotenv.Load()

	storePath := flag.String("store", getenv("SAXO_STORE_PATH", "data/credstore"), "credential store directory")
	storeKey := flag.String("key", os.Getenv("SAXO_STORE_KEY"), "store encryption key (hex or base64, 32 bytes), optional")
	accessToken := flag.String("access-token", os.Getenv("SAXO_ACCESS_TOKEN"), "initial access token")
	refreshToken := flag.String("refresh-token", os.Getenv("SAXO_REFRESH_TOKEN"), "initial refresh token")
	lifetime := flag.Duration("lifetime", 20*time.Minute, "access token lifetime")
	margin := flag.Duration("margin", time.Minute, "safety margin subtracted from the lifetime")
	flag.Parse()

	if *accessToken == "" && *refreshToken == "" {
		fatal("nothing to seed: set -access-token and/or -refresh-token")
	}

	key, err := credstore.ParseKey(*storeKey)
	if err != nil {
		fatal("parse key: %v", err)
	}
	store, err := credstore.Open(credstore.OpenOptions{Path: *storePath, EncryptionKey: key})
	if err != nil {
		fatal("open store: %v", err)
	}
	defer store.Close()

	rec := &domain.TokenRecord{
		AccessToken:  *accessToken,
		RefreshToken: *refreshToken,
		ExpiresAt:    time.Now().Add(*lifetime - *margin),
	}
	if err := store.SaveToken(rec); err != nil {
		fatal("save token: %v", err)
	}
	fmt.Printf("token seeded, usable until %s\n", rec.ExpiresAt.Format(time.RFC3339))
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
