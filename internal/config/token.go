package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const (
	keychainService       = "mindmate"
	keychainAPIKeyAccount = "anthropic_api_key"
	keychainTokenAccount  = "api_token"

	// Env override wins over the stored token, useful for CI and containers.
	tokenEnv = "MINDMATE_API_TOKEN"
)

// GetAPIToken returns the bearer token that protects the local HTTP API.
// The token is read from the MINDMATE_API_TOKEN environment variable if set,
// otherwise from the platform secret store. On first use a random token is
// generated and persisted.
func GetAPIToken() (string, error) {
	return getAPIToken(keychainReader{}, keychainStore, os.Getenv)
}

type storeFunc func(service, account, value string) error

func getAPIToken(kc keychain, store storeFunc, getenv func(string) string) (string, error) {
	if tok := strings.TrimSpace(getenv(tokenEnv)); tok != "" {
		return tok, nil
	}

	if tok, err := kc.Get(keychainService, keychainTokenAccount); err == nil && tok != "" {
		return tok, nil
	}

	tok, err := generateToken()
	if err != nil {
		return "", err
	}
	if err := store(keychainService, keychainTokenAccount, tok); err != nil {
		return "", fmt.Errorf("persisting API token: %w", err)
	}
	return tok, nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating API token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
