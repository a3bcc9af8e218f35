package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from the given .env file if it exists.
// Variables already present in the environment win over the file.
func LoadEnv(filename string) error {
	err := godotenv.Load(filename)
	if errors.Is(err, fs.ErrNotExist) {
		// .env file is optional
		return nil
	}
	return err
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// HTTPToWsURL converts an HTTP(S) RPC URL to a WebSocket URL
func HTTPToWsURL(httpURL string) string {
	wsURL := strings.Replace(httpURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	return wsURL
}
