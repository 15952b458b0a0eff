// Command calendar-auth runs the one-time Google consent flow and stores
// the resulting token where the API and worker read it.
package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Kellia855/mindbridge/internal/config"
	"github.com/Kellia855/mindbridge/internal/credentials"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.GoogleClientSecretFile == "" {
		return fmt.Errorf("GOOGLE_CLIENT_SECRET_FILE is not set")
	}

	provider, err := credentials.NewProvider(cfg.GoogleClientSecretFile, cfg.GoogleTokenFile)
	if err != nil {
		return err
	}

	state, err := randomState()
	if err != nil {
		return err
	}

	fmt.Println("Open this link in a browser and grant access to the wellness calendar and mailbox:")
	fmt.Println()
	fmt.Println(provider.AuthCodeURL(state))
	fmt.Println()
	fmt.Print("Paste the authorization code: ")

	code, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("read code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("no authorization code entered")
	}

	if _, err := provider.Exchange(context.Background(), code); err != nil {
		return err
	}
	fmt.Printf("Token saved to %s\n", cfg.GoogleTokenFile)
	return nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
