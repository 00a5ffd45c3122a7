package witsy

import "encoding/json"

// catalogResponse is the body of POST /llm/models. Records are kept raw so
// that every upstream field survives into the model meta.
type catalogResponse struct {
	Models []json.RawMessage `json:"models"`
}

// catalogRecord holds the fields the adapter interprets.
type catalogRecord struct {
	Engine string `json:"engine"`
	Model  string `json:"model"`
	Label  string `json:"label"`
}

// errorResponse covers the error bodies the API is known to send.
type errorResponse struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}
