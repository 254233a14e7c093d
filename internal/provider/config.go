package provider

// RawConfig is a client-supplied configuration before default filling.
// Pointer fields distinguish "absent" from zero.
type RawConfig struct {
	Provider           string   `mapstructure:"provider" json:"provider"`
	Model              string   `mapstructure:"model" json:"model"`
	APIKey             string   `mapstructure:"api_key" json:"api_key"`
	BaseURL            string   `mapstructure:"base_url" json:"base_url"`
	MaxTokens          *int     `mapstructure:"max_tokens" json:"max_tokens"`
	Temperature        *float64 `mapstructure:"temperature" json:"temperature"`
	ContextLength      *int     `mapstructure:"context_length" json:"context_length"`
	TopP               *float64 `mapstructure:"top_p" json:"top_p"`
	TopK               *int     `mapstructure:"top_k" json:"top_k"`
	CustomInstructions string   `mapstructure:"custom_instructions" json:"custom_instructions"`
}

// Config is a finalized per-client provider configuration. It is replaced
// wholesale on each reconfiguration, never merged.
type Config struct {
	Provider           string   `json:"provider"`
	Model              string   `json:"model"`
	APIKey             string   `json:"api_key,omitempty"`
	BaseURL            string   `json:"base_url,omitempty"`
	MaxTokens          int      `json:"max_tokens"`
	Temperature        float64  `json:"temperature"`
	ContextLength      int      `json:"context_length"`
	TopP               *float64 `json:"top_p,omitempty"`
	TopK               *int     `json:"top_k,omitempty"`
	CustomInstructions string   `json:"custom_instructions,omitempty"`
}

// ExtensionPayload renders the config with the field names the extension-side
// contract fixes for saveApiConfiguration.
func (c Config) ExtensionPayload() map[string]any {
	return map[string]any{
		"apiProvider":        c.Provider,
		"apiModelId":         c.Model,
		"apiKey":             c.APIKey,
		"apiUrl":             c.BaseURL,
		"maxTokens":          c.MaxTokens,
		"temperature":        c.Temperature,
		"contextLength":      c.ContextLength,
		"topP":               c.TopP,
		"topK":               c.TopK,
		"customInstructions": c.CustomInstructions,
	}
}
