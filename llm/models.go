package llm

// Model identifier constants for the supported providers.

// OpenAI model identifiers.
const (
	// ModelOpenAIGPT5 is the flagship tier.
	ModelOpenAIGPT5 = "gpt-5"
	// ModelOpenAIGPT5Mini is the standard tier used for tool-calling turns.
	ModelOpenAIGPT5Mini = "gpt-5-mini"
	// ModelOpenAIGPT5Nano is the cheap tier used for relevance judgments,
	// routing and profile summarization.
	ModelOpenAIGPT5Nano = "gpt-5-nano"
	// ModelOpenAIWhisper is the speech-to-text model for the transcription
	// fallback path.
	ModelOpenAIWhisper = "whisper-1"
)

// Anthropic model identifiers.
const (
	ModelAnthropicSonnet = "claude-sonnet-4-20250514"
	ModelAnthropicHaiku  = "claude-haiku-4-20250514"
)

// DeepSeek model identifiers.
const (
	ModelDeepSeekChat     = "deepseek-chat"
	ModelDeepSeekReasoner = "deepseek-reasoner"
)

// Gemini model identifiers.
const (
	ModelGeminiFlash     = "gemini-2.5-flash"
	ModelGeminiFlashLite = "gemini-2.5-flash-lite"
)
