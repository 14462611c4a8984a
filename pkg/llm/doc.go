// Package llm is the boundary to the completion providers.
//
// Five providers are supported: OpenAI (Responses API), Grok and Mistral
// (OpenAI-compatible chat completions), Claude (messages API) and Gemini
// (generateContent). One client per provider is created lazily by the
// Registry and reused for the life of the process.
//
// Every failure is typed:
//
//	*TransportError          the provider could not be reached or timed out
//	*UpstreamError           non-2xx status, with code and body
//	*MalformedResponseError  the response carried no usable text
//
// The SDK retry loop is disabled; callers own retries.
//
// Configuration (environment, prefix LLM_):
//
//	LLM_<PROVIDER>_BASE_URL       endpoint override
//	LLM_<PROVIDER>_API_KEY        credentials
//	LLM_<PROVIDER>_HEADERS        extra headers, "k1:v1,k2:v2"
//	LLM_<PROVIDER>_TIMEOUT        per-request timeout (default 30s)
//	LLM_<PROVIDER>_DEFAULT_MODEL  model used when a message names none
//	LLM_ALLOWED_MODELS            HTTP allow-list
//
// where <PROVIDER> is one of OPENAI, CLAUDE, GEMINI, GROK, MISTRAL.
package llm
