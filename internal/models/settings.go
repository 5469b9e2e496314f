package models

// Text-generation providers.
const (
	ProviderClaude   = "claude"
	ProviderOpenAI   = "openai"
	ProviderQwen     = "qwen"
	ProviderDeepSeek = "deepseek"
)

// Settings configures the text-generation collaborator. It is persisted
// under the apiSettings key.
type Settings struct {
	Provider string `json:"provider,omitempty"`
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
	APIKey   string `json:"apiKey,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// DefaultSettings returns the settings used before anything is saved.
func DefaultSettings() Settings {
	return Settings{
		Provider: ProviderClaude,
		Endpoint: "https://api.anthropic.com/v1/messages",
		Model:    "claude-sonnet-4-20250514",
	}
}

// Masked returns a copy safe to hand to clients.
func (s Settings) Masked() Settings {
	if len(s.APIKey) > 4 {
		s.APIKey = "****" + s.APIKey[len(s.APIKey)-4:]
	} else if s.APIKey != "" {
		s.APIKey = "****"
	}
	return s
}
