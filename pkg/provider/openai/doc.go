// Package openai implements custom engines: user-configured endpoints that
// speak the OpenAI Chat Completions protocol (vLLM, LiteLLM, Ollama,
// LM Studio and the like).
package openai
