package provider

// Profile is an immutable catalog entry for a known model provider.
type Profile struct {
	Models             []string
	DefaultModel       string
	DefaultMaxTokens   int
	DefaultTemperature float64
	MaxContext         int
	SupportsVision     bool
	DefaultBaseURL     string
}

// Info is the read-only view returned by Registry.Providers.
type Info struct {
	Models         []string `json:"models"`
	SupportsVision bool     `json:"supports_vision"`
	MaxContext     int      `json:"max_context"`
}

func builtinProfiles() map[string]Profile {
	return map[string]Profile{
		"anthropic": {
			Models:             []string{"claude-3-opus", "claude-3-sonnet", "claude-3-haiku", "claude-2.1", "claude-2"},
			DefaultModel:       "claude-3-opus",
			DefaultMaxTokens:   4096,
			DefaultTemperature: 0.7,
			MaxContext:         200000,
			SupportsVision:     true,
		},
		"openai": {
			Models:             []string{"gpt-4-turbo", "gpt-4", "gpt-3.5-turbo", "gpt-4-vision-preview"},
			DefaultModel:       "gpt-4-turbo",
			DefaultMaxTokens:   4096,
			DefaultTemperature: 0.7,
			MaxContext:         128000,
			SupportsVision:     true,
		},
		"gemini": {
			Models:             []string{"gemini-pro", "gemini-pro-vision", "gemini-1.5-pro"},
			DefaultModel:       "gemini-pro",
			DefaultMaxTokens:   8192,
			DefaultTemperature: 0.7,
			MaxContext:         1000000,
			SupportsVision:     true,
		},
		"ollama": {
			Models:             []string{"llama2", "codellama", "mistral", "mixtral", "deepseek-coder"},
			DefaultModel:       "llama2",
			DefaultMaxTokens:   4096,
			DefaultTemperature: 0.7,
			MaxContext:         32000,
		},
		"azure": {
			Models:             []string{"gpt-4", "gpt-35-turbo"},
			DefaultModel:       "gpt-4",
			DefaultMaxTokens:   4096,
			DefaultTemperature: 0.7,
			MaxContext:         32000,
		},
		"openai-compatible": {
			Models:             []string{"qwen-3-coder", "qwen-2.5-coder", "deepseek-coder", "codellama", "custom"},
			DefaultModel:       "qwen-3-coder",
			DefaultMaxTokens:   4096,
			DefaultTemperature: 0.7,
			MaxContext:         131000,
			DefaultBaseURL:     "http://localhost:3000/v1",
		},
	}
}
