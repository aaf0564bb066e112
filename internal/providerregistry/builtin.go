// Package providerregistry holds the mutable, non-persisted snapshot of
// configured LLM providers. It is rebuilt from the credential store plus
// the environment on every credential change (§4.3), following the
// name-to-constructor table pattern in the teacher's llm/factory package,
// but holding ProviderInfo metadata rather than live provider clients
// (concrete LLM HTTP clients are out of core scope, §1).
package providerregistry

// AuthType describes how a provider authenticates.
type AuthType string

const (
	AuthAPIKey AuthType = "api-key"
	AuthOAuth  AuthType = "oauth"
	AuthLocal  AuthType = "local"
)

// BuiltinProvider is the static metadata the core knows about a well-known
// provider: its env var fallback, auth type, and local/OAuth flags.
type BuiltinProvider struct {
	Name        string
	DisplayName string
	EnvVar      string
	AuthType    AuthType
	IsLocal     bool // hidden when DeployPlatform is set (§4.3)
	OAuthDevice bool // selects the device-code flow over authorization-code
}

// LocalLLMProviderName is the compiled-in synthetic provider backed by a
// local-llm.json config file rather than any credential source (§4.3).
const LocalLLMProviderName = "local-llm"

// Builtins is the fixed built-in provider list, in the order §4.3 specifies
// for available()'s rule 2 fallback ordering.
var Builtins = []BuiltinProvider{
	{Name: "anthropic", DisplayName: "Anthropic", EnvVar: "ANTHROPIC_API_KEY", AuthType: AuthAPIKey},
	{Name: "openai", DisplayName: "OpenAI", EnvVar: "OPENAI_API_KEY", AuthType: AuthAPIKey},
	{Name: "gemini", DisplayName: "Gemini", EnvVar: "GEMINI_API_KEY", AuthType: AuthAPIKey},
	{Name: "groq", DisplayName: "Groq", EnvVar: "GROQ_API_KEY", AuthType: AuthAPIKey},
	{Name: "xai", DisplayName: "xAI", EnvVar: "XAI_API_KEY", AuthType: AuthAPIKey},
	{Name: "deepseek", DisplayName: "DeepSeek", EnvVar: "DEEPSEEK_API_KEY", AuthType: AuthAPIKey},
	{Name: "mistral", DisplayName: "Mistral", EnvVar: "MISTRAL_API_KEY", AuthType: AuthAPIKey},
	{Name: "openrouter", DisplayName: "OpenRouter", EnvVar: "OPENROUTER_API_KEY", AuthType: AuthAPIKey},
	{Name: "cerebras", DisplayName: "Cerebras", EnvVar: "CEREBRAS_API_KEY", AuthType: AuthAPIKey},
	{Name: "minimax", DisplayName: "MiniMax", EnvVar: "MINIMAX_API_KEY", AuthType: AuthAPIKey},
	{Name: "moonshot", DisplayName: "Moonshot", EnvVar: "MOONSHOT_API_KEY", AuthType: AuthAPIKey},
	{Name: "zai", DisplayName: "Z.ai", EnvVar: "ZAI_API_KEY", AuthType: AuthAPIKey},
	{Name: "venice", DisplayName: "Venice", EnvVar: "VENICE_API_KEY", AuthType: AuthAPIKey},
	{Name: "ollama", DisplayName: "Ollama", EnvVar: "", AuthType: AuthLocal, IsLocal: true},
	{Name: "openai-codex", DisplayName: "OpenAI Codex", EnvVar: "", AuthType: AuthOAuth},
	{Name: "github-copilot", DisplayName: "GitHub Copilot", EnvVar: "", AuthType: AuthOAuth, OAuthDevice: true},
	{Name: "kimi-code", DisplayName: "Kimi Code", EnvVar: "", AuthType: AuthOAuth, OAuthDevice: true},
	{Name: LocalLLMProviderName, DisplayName: "Local LLM", EnvVar: "", AuthType: AuthLocal, IsLocal: true},
}

// builtinByName indexes Builtins for O(1) lookup.
var builtinByName = func() map[string]BuiltinProvider {
	m := make(map[string]BuiltinProvider, len(Builtins))
	for _, b := range Builtins {
		m[b.Name] = b
	}
	return m
}()

// LookupBuiltin returns the BuiltinProvider metadata for name, if known.
func LookupBuiltin(name string) (BuiltinProvider, bool) {
	b, ok := builtinByName[name]
	return b, ok
}
