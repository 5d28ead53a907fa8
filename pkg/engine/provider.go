package engine

import (
	"fmt"
	"sync"

	"github.com/germanamz/mcpchat/pkg/modeladapter"
	"github.com/germanamz/mcpchat/pkg/providers/openai"
)

// ProviderFactory creates a Completer from a ProviderConfig.
type ProviderFactory func(cfg ProviderConfig) (modeladapter.Completer, error)

var (
	factoryMu   sync.RWMutex
	factories   = map[string]ProviderFactory{}
	defaultsReg sync.Once
)

func ensureDefaults() {
	defaultsReg.Do(func() {
		factories["openai"] = newOpenAI
	})
}

// RegisterProvider registers a custom provider factory under the given kind.
// It can be called before New to extend the engine with additional providers.
func RegisterProvider(kind string, factory ProviderFactory) {
	ensureDefaults()

	factoryMu.Lock()
	defer factoryMu.Unlock()

	factories[kind] = factory
}

// getFactory returns the factory for the given kind.
func getFactory(kind string) (ProviderFactory, bool) {
	ensureDefaults()

	factoryMu.RLock()
	defer factoryMu.RUnlock()

	f, ok := factories[kind]
	return f, ok
}

// newOpenAI builds the Chat Completions adapter. It also serves any
// OpenAI-compatible endpoint through base_url.
func newOpenAI(cfg ProviderConfig) (modeladapter.Completer, error) {
	a := openai.New(cfg.BaseURL, cfg.APIKey, cfg.Model)
	a.Temperature = cfg.Temperature
	a.MaxTokens = cfg.MaxTokens
	if cfg.MaxRetries != nil {
		a.MaxRetries = *cfg.MaxRetries
	}
	if cfg.AuthHeader != "" {
		a.Auth.Header = cfg.AuthHeader
		a.Auth.Scheme = cfg.AuthScheme
	}
	if len(cfg.Headers) > 0 {
		a.Headers = make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			a.Headers[k] = v
		}
	}

	return a, nil
}

// buildCompleter creates a Completer from a ProviderConfig using the registered
// factory for its Kind.
func buildCompleter(cfg ProviderConfig) (modeladapter.Completer, error) {
	factory, ok := getFactory(cfg.Kind)
	if !ok {
		return nil, fmt.Errorf("engine: unknown provider kind %q", cfg.Kind)
	}

	c, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("engine: provider %q: %w", cfg.Kind, err)
	}

	return c, nil
}
