package provider

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// ErrUnknownProvider reports a configuration naming a provider absent from
// the catalog. Fatal to that one configuration attempt only.
var ErrUnknownProvider = errors.New("unknown provider")

const (
	// FallbackProvider is used when no or an unknown provider is requested.
	FallbackProvider = "openai-compatible"
)

// Registry is the process-wide provider catalog. It is read-only after
// construction and safe for concurrent use without locking.
type Registry struct {
	profiles map[string]Profile
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{profiles: builtinProfiles(), logger: logger}
}

// Providers returns the catalog keyed by provider name.
func (r *Registry) Providers() map[string]Info {
	out := make(map[string]Info, len(r.profiles))
	for name, p := range r.profiles {
		out[name] = Info{
			Models:         slices.Clone(p.Models),
			SupportsVision: p.SupportsVision,
			MaxContext:     p.MaxContext,
		}
	}
	return out
}

// Models returns the known model list for a provider, empty for unknown names.
func (r *Registry) Models(name string) []string {
	p, ok := r.profiles[normalize(name)]
	if !ok {
		return nil
	}
	return slices.Clone(p.Models)
}

// DefaultConfig builds the default configuration for a provider, falling back
// to FallbackProvider when name is empty or unknown.
func (r *Registry) DefaultConfig(name string) Config {
	name = normalize(name)
	p, ok := r.profiles[name]
	if !ok {
		name = FallbackProvider
		p = r.profiles[name]
	}
	return Config{
		Provider:      name,
		Model:         p.DefaultModel,
		MaxTokens:     p.DefaultMaxTokens,
		Temperature:   p.DefaultTemperature,
		ContextLength: p.MaxContext,
		BaseURL:       p.DefaultBaseURL,
	}
}

// FillDefaults validates raw against the catalog and fills absent numeric
// fields from the provider profile. Unknown models and oversized context
// lengths are warnings, not errors: providers evolve faster than the static
// list.
func (r *Registry) FillDefaults(clientID string, raw RawConfig) (Config, error) {
	name := normalize(raw.Provider)
	p, ok := r.profiles[name]
	if !ok {
		return Config{}, fmt.Errorf("%w: %s", ErrUnknownProvider, raw.Provider)
	}

	model := raw.Model
	if model == "" {
		model = p.DefaultModel
	} else if !slices.Contains(p.Models, model) {
		r.logger.Warn("model not in known list, allowing anyway",
			"client_id", clientID, "provider", name, "model", model)
	}

	cfg := Config{
		Provider:           name,
		Model:              model,
		APIKey:             raw.APIKey,
		BaseURL:            raw.BaseURL,
		MaxTokens:          p.DefaultMaxTokens,
		Temperature:        p.DefaultTemperature,
		ContextLength:      p.MaxContext,
		TopP:               raw.TopP,
		TopK:               raw.TopK,
		CustomInstructions: raw.CustomInstructions,
	}
	if raw.MaxTokens != nil {
		cfg.MaxTokens = *raw.MaxTokens
	}
	if raw.Temperature != nil {
		cfg.Temperature = *raw.Temperature
	}
	if raw.ContextLength != nil {
		cfg.ContextLength = *raw.ContextLength
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = p.DefaultBaseURL
	}

	if cfg.ContextLength > p.MaxContext {
		r.logger.Warn("context length exceeds provider max, keeping value",
			"client_id", clientID, "provider", name,
			"context_length", cfg.ContextLength, "max_context", p.MaxContext)
	}

	return cfg, nil
}

// Validate is a structural pre-check. It returns false rather than an error
// so callers can use it in non-fatal paths.
func (r *Registry) Validate(raw RawConfig) bool {
	if raw.Provider == "" || raw.Model == "" {
		return false
	}
	p, ok := r.profiles[normalize(raw.Provider)]
	if !ok {
		return false
	}
	if raw.MaxTokens != nil && *raw.MaxTokens <= 0 {
		return false
	}
	if raw.Temperature != nil && (*raw.Temperature < 0 || *raw.Temperature > 2) {
		return false
	}
	if raw.ContextLength != nil && *raw.ContextLength > p.MaxContext {
		r.logger.Warn("context length exceeds provider max",
			"provider", raw.Provider,
			"context_length", *raw.ContextLength, "max_context", p.MaxContext)
	}
	return true
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
