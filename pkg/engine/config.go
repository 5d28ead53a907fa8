package engine

import (
	"fmt"
	"os"
	"time"

	"github.com/germanamz/mcpchat/pkg/conversation"
	"github.com/germanamz/mcpchat/pkg/registry"
	"github.com/germanamz/mcpchat/pkg/tools/mcpclient"
	"gopkg.in/yaml.v3"
)

// Defaults applied by WithDefaults.
const (
	DefaultProviderKind   = "openai"
	DefaultModel          = "gpt-4o"
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultMaxRetries     = 2
	DefaultConnectTimeout = 30 * time.Second
	DefaultLogLevel       = "warn"

	// APIKeyEnv is read when the config carries no API key.
	APIKeyEnv = "OPENAI_API_KEY" //nolint:gosec // environment variable name, not a secret
)

// ConfigError reports an invalid configuration.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "engine: config: " + e.Reason
}

func invalidf(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// Config is the top-level client configuration.
type Config struct {
	Provider     ProviderConfig     `yaml:"provider"`
	MCPServers   []MCPConfig        `yaml:"mcp_servers"`
	Conversation ConversationConfig `yaml:"conversation"`
	Registry     RegistryConfig     `yaml:"registry"`
	Connect      ConnectConfig      `yaml:"connect"`
	Shell        ShellConfig        `yaml:"shell"`
	LogLevel     string             `yaml:"log_level"`
}

// ProviderConfig describes the chat completion endpoint.
type ProviderConfig struct {
	Kind        string            `yaml:"kind"`
	BaseURL     string            `yaml:"base_url"`
	APIKey      string            `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	AuthHeader  string            `yaml:"auth_header"`
	AuthScheme  string            `yaml:"auth_scheme"`
	Model       string            `yaml:"model"`
	Temperature float64           `yaml:"temperature"`
	MaxTokens   int               `yaml:"max_tokens"`
	MaxRetries  *int              `yaml:"max_retries"`
	Headers     map[string]string `yaml:"headers"`
}

// MCPConfig describes an MCP server to connect to. HTTP servers set url,
// stdio servers set command.
type MCPConfig struct {
	Name      string            `yaml:"name"`
	URL       string            `yaml:"url"`
	Transport string            `yaml:"transport"`
	Command   string            `yaml:"command"`
	Args      []string          `yaml:"args"`
	Env       map[string]string `yaml:"env"`
	Headers   map[string]string `yaml:"headers"`
}

// Endpoint converts the server entry to an mcpclient.Endpoint.
func (m MCPConfig) Endpoint() mcpclient.Endpoint {
	return mcpclient.Endpoint{
		Name:      m.Name,
		URL:       m.URL,
		Transport: m.Transport,
		Command:   m.Command,
		Args:      m.Args,
		Env:       m.Env,
		Headers:   m.Headers,
	}
}

// ConversationConfig holds the conversation driver settings.
type ConversationConfig struct {
	SystemPrompt  string `yaml:"system_prompt"`
	MaxToolRounds int    `yaml:"max_tool_rounds"`
	ToolErrors    string `yaml:"tool_errors"`
}

// RegistryConfig holds the tool registry settings.
type RegistryConfig struct {
	OnCollision string `yaml:"on_collision"`
}

// ConnectConfig controls the startup connect phase.
type ConnectConfig struct {
	// RequireAll fails startup when any server fails to connect.
	RequireAll bool          `yaml:"require_all"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ShellConfig holds interactive prompt settings.
type ShellConfig struct {
	Prompt      string `yaml:"prompt"`
	ExitCommand string `yaml:"exit_command"`
	Markdown    *bool  `yaml:"markdown"`
	Verbose     bool   `yaml:"verbose"`
}

// MarkdownEnabled reports whether answers are rendered as markdown. It
// defaults to true.
func (s ShellConfig) MarkdownEnabled() bool {
	return s.Markdown == nil || *s.Markdown
}

// LoadConfig reads a YAML file and returns a Config.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing. This allows API keys and other secrets to be kept in
// environment variables (e.g. loaded from a .env file) rather than committed
// in the config.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	return cfg, nil
}

// WithDefaults returns a copy of c with every unset field filled in. A
// missing API key is read from OPENAI_API_KEY.
func (c Config) WithDefaults() Config {
	p := &c.Provider
	if p.Kind == "" {
		p.Kind = DefaultProviderKind
	}
	if p.Model == "" {
		p.Model = DefaultModel
	}
	if p.BaseURL == "" {
		p.BaseURL = DefaultBaseURL
	}
	if p.APIKey == "" {
		p.APIKey = os.Getenv(APIKeyEnv)
	}
	if p.MaxRetries == nil {
		n := DefaultMaxRetries
		p.MaxRetries = &n
	}

	if c.Conversation.MaxToolRounds == 0 {
		c.Conversation.MaxToolRounds = conversation.DefaultMaxToolRounds
	}
	if c.Conversation.ToolErrors == "" {
		c.Conversation.ToolErrors = string(conversation.ReportToolErrors)
	}
	if c.Registry.OnCollision == "" {
		c.Registry.OnCollision = string(registry.LastWins)
	}
	if c.Connect.Timeout == 0 {
		c.Connect.Timeout = DefaultConnectTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	return c
}

// Endpoints returns the configured servers in order.
func (c Config) Endpoints() []mcpclient.Endpoint {
	eps := make([]mcpclient.Endpoint, len(c.MCPServers))
	for i, m := range c.MCPServers {
		eps[i] = m.Endpoint()
	}
	return eps
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if len(c.MCPServers) == 0 {
		return invalidf("at least one mcp server is required")
	}

	keys := make(map[string]struct{}, len(c.MCPServers))
	for i, m := range c.MCPServers {
		ep := m.Endpoint()
		if m.URL == "" && m.Command == "" {
			return invalidf("mcp server %d (%q): url or command is required", i, m.Name)
		}
		switch ep.TransportKind() {
		case mcpclient.TransportSSE, mcpclient.TransportStreamable:
			if m.URL == "" {
				return invalidf("mcp server %q: transport %q requires url", ep.Key(), ep.TransportKind())
			}
		case mcpclient.TransportStdio:
			if m.Command == "" {
				return invalidf("mcp server %q: transport stdio requires command", ep.Key())
			}
		default:
			return invalidf("mcp server %q: unknown transport %q", ep.Key(), m.Transport)
		}
		if _, dup := keys[ep.Key()]; dup {
			return invalidf("duplicate mcp server %q", ep.Key())
		}
		keys[ep.Key()] = struct{}{}
	}

	if c.Provider.MaxTokens < 0 {
		return invalidf("provider: max_tokens must not be negative")
	}
	if c.Provider.MaxRetries != nil && *c.Provider.MaxRetries < 0 {
		return invalidf("provider: max_retries must not be negative")
	}
	if c.Conversation.MaxToolRounds < 0 {
		return invalidf("conversation: max_tool_rounds must not be negative")
	}
	if _, err := conversation.ParseToolErrorPolicy(c.Conversation.ToolErrors); err != nil {
		return invalidf("conversation: tool_errors: %q is not one of report, abort", c.Conversation.ToolErrors)
	}
	if _, err := registry.ParseCollisionPolicy(c.Registry.OnCollision); err != nil {
		return invalidf("registry: on_collision: %q is not one of last_wins, reject, namespace", c.Registry.OnCollision)
	}
	if c.Connect.Timeout < 0 {
		return invalidf("connect: timeout must not be negative")
	}
	if c.Provider.Kind != "" {
		if _, ok := getFactory(c.Provider.Kind); !ok {
			return invalidf("provider: unknown kind %q", c.Provider.Kind)
		}
	}

	return nil
}
