package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"trackup/config"
	"trackup/models"
	"trackup/services/llm"

	"go.uber.org/zap"
)

// checkmodel prints the model configuration and sends a single greeting, to
// tell a bad key apart from a bad base URL or model name.
func main() {
	cfg := config.Load()

	fmt.Printf("Provider: %s\n", cfg.ModelProvider)
	fmt.Printf("Model: %s\n", cfg.ModelName)
	if cfg.ModelProvider == config.ProviderOpenAI {
		fmt.Printf("Base URL: %s\n", cfg.OpenAIBaseURL)
	}
	// Config trims the key; report on it as it was written.
	keyVar := "OPENAI_API_KEY"
	if cfg.ModelProvider == config.ProviderAnthropic {
		keyVar = "ANTHROPIC_API_KEY"
	}
	for _, line := range describeKey(os.Getenv(keyVar)) {
		fmt.Println(line)
	}

	model, err := llm.NewChatModel(cfg, zap.NewNop())
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reply, err := model.Generate(ctx, []models.Message{models.UserMessage("Hello")}, nil)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	fmt.Println("Response:", reply.Content)
}

func describeKey(key string) []string {
	start := "None"
	if key != "" {
		start = key[:min(8, len(key))]
	}
	return []string{
		fmt.Sprintf("Key starts with: %s...", start),
		fmt.Sprintf("Key length: %d", len(key)),
		fmt.Sprintf("Has whitespace: %t", strings.ContainsAny(key, " \t\r\n")),
	}
}
