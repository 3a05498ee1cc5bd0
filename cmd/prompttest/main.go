package main

// Inspect the exact prompts a profile produces, optionally running them
// against the configured primary backend:
//   go run ./cmd/prompttest -transcript talk.txt -seniority senior -verbosity compact

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"livebook-backend/internal/llm"
	openai "livebook-backend/internal/llm/openai"
	"livebook-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	transcriptPath := flag.String("transcript", "", "Path to a transcript text file")
	seniority := flag.String("seniority", "mid", "Audience seniority (junior, mid, senior)")
	verbosity := flag.String("verbosity", "compact", "Output verbosity (compact, full)")
	title := flag.String("title", "Sample Talk", "Talk title")
	speaker := flag.String("speaker", "Sample Speaker", "Speaker name")
	event := flag.String("event", "Sample Event", "Event name")
	generate := flag.Bool("generate", false, "Send the prompt to the primary backend and print the output")
	flag.Parse()

	sen, err := llm.ParseSeniority(*seniority)
	if err != nil {
		exitErr(err.Error())
	}
	verb, err := llm.ParseVerbosity(*verbosity)
	if err != nil {
		exitErr(err.Error())
	}

	transcript := "This is a placeholder transcript used to inspect prompt construction."
	if strings.TrimSpace(*transcriptPath) != "" {
		raw, err := os.ReadFile(*transcriptPath)
		if err != nil {
			exitErr(fmt.Sprintf("read transcript: %v", err))
		}
		transcript = string(raw)
	}

	meta := llm.TalkMetadata{
		Title:   *title,
		Speaker: *speaker,
		Event:   *event,
	}

	prompt, err := llm.BuildPrompt(sen, verb, meta, transcript)
	if err != nil {
		exitErr(fmt.Sprintf("build prompt: %v", err))
	}

	fmt.Printf("profile: %s\n", llm.ProfileKey(sen, verb))
	fmt.Println("--- system prompt ---")
	fmt.Println(prompt.System)
	fmt.Println("--- user prompt ---")
	fmt.Println(prompt.User)

	if !*generate {
		return
	}

	client, err := openai.NewClient(cfg.PrimaryBackendURL, cfg.PrimaryAPIKey, cfg.GenerationTimeout)
	if err != nil {
		exitErr(err.Error())
	}

	out, err := client.Generate(context.Background(), llm.GenerateInput{
		SystemPrompt:    prompt.System,
		UserPrompt:      prompt.User,
		Model:           cfg.PrimaryModel,
		Temperature:     0.3,
		MaxOutputTokens: 8192,
	})
	if err != nil {
		exitErr(fmt.Sprintf("generate: %v", err))
	}

	fmt.Println("--- generated livebook ---")
	fmt.Println(out)
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
