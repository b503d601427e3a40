// File: cmd/diagnostic/llm_diagnostic.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/altracloud/altrachat/internal/config"
	"github.com/altracloud/altrachat/internal/domain"
	"github.com/altracloud/altrachat/internal/services"
	"github.com/altracloud/altrachat/internal/services/ai"
	"github.com/altracloud/altrachat/internal/services/format"
)

// Sends one prompt through the configured completion backend and prints the
// formatted reply. Useful for checking keys and mode profiles.
func main() {
	envFile := flag.String("env", ".env", "path to a .env file")
	modeFlag := flag.String("mode", "chat", "chat, code or image")
	prompt := flag.String("prompt", "What is the answer to life, universe and everything?", "message to send")
	timeout := flag.Duration("timeout", 60*time.Second, "request deadline")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("Warning: could not load %s: %v", *envFile, err)
	}
	cfg := config.FromEnv()
	logger := services.NewLogger("diagnostic", "development", "DEBUG")

	mode, err := domain.ParseMode(*modeFlag)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	profiles, err := ai.LoadModeProfiles(cfg.ModeProfilesFile)
	if err != nil {
		log.Fatalf("❌ Mode profiles: %v", err)
	}

	aiConfig := ai.DefaultConfig()
	aiConfig.ProxyURL = cfg.CompletionProxyURL
	aiConfig.ProxyKey = cfg.CompletionProxyKey
	aiConfig.GatewayKey = cfg.GatewayAPIKey
	aiConfig.GatewayBaseURL = cfg.GatewayBaseURL

	completer, err := ai.NewCompleter(aiConfig, profiles, logger)
	if err != nil {
		log.Fatalf("❌ Completion backend: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	completion, err := completer.Complete(ctx, *prompt, mode)
	if err != nil {
		log.Printf("❌ Completion failed: %v", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Reply in %v (type %q)\n", time.Since(start).Round(time.Millisecond), completion.Type)

	kind := mode.MessageKind()
	if completion.IsImage() {
		kind = domain.KindImage
	}
	msg := domain.NewAssistantMessage(completion.Response, kind, time.Now())
	for i, seg := range format.FormatMessage(msg) {
		switch seg.Kind {
		case domain.SegmentCode:
			fmt.Printf("[%d] code (%s):\n%s\n", i, seg.Language, seg.Body)
		case domain.SegmentImage:
			url := seg.URL
			if len(url) > 80 {
				url = url[:80] + "..."
			}
			fmt.Printf("[%d] image %q: %s\n", i, seg.Alt, url)
		default:
			fmt.Printf("[%d] text:\n%s\n", i, seg.Text)
		}
	}
}
