package config

import "os"

type AI struct {
	Provider     string
	OpenAIKey    string
	ClaudeKey    string
	SystemPrompt string
	Model        string
}

// LoadAIFromEnv provides a simple env-only loader; services can merge DB settings over this.
func LoadAIFromEnv() AI {
	provider := os.Getenv("AI_PROVIDER")
	if provider == "" {
		provider = "openai"
	}
	return AI{
		Provider:     provider,
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		ClaudeKey:    os.Getenv("CLAUDE_API_KEY"),
		SystemPrompt: os.Getenv("AI_SYSTEM_PROMPT"),
		Model:        os.Getenv("AI_MODEL"),
	}
}
