package main

import (
	"encoding/json"
	"net/http"
	"strings"
)

// catalogRecord is one entry of the witsy catalog.
type catalogRecord struct {
	Engine string `json:"engine"`
	Model  string `json:"model"`
	Label  string `json:"label"`
	Extra  any    `json:"context_window,omitempty"`
}

// catalog is served in this order on every call. The duplicate gpt-4o
// entry is intentional: consumers must keep duplicates.
var catalog = []catalogRecord{
	{Engine: "anthropic", Model: "claude-sonnet-4", Label: "Claude Sonnet 4", Extra: 200000},
	{Engine: "openai", Model: "gpt-4o", Label: "GPT-4o", Extra: 128000},
	{Engine: "openai", Model: "gpt-4o", Label: "GPT-4o (legacy)"},
	{Engine: "openai", Model: "gpt-4o-mini", Label: "GPT-4o mini", Extra: 128000},
	{Engine: "mistralai", Model: "mistral-large", Label: "Mistral Large"},
	{Engine: "google", Model: "gemini-2.0-flash", Label: "Gemini 2.0 Flash", Extra: 1000000},
}

func catalogHandler(apiKey string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" || (apiKey != "" && token != apiKey) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid api key"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"models": catalog})
	})
}
