package api

import "encoding/json"

// Kind identifies one of the catalog categories an engine can expose models for.
type Kind string

const (
	KindChat      Kind = "chat"
	KindImage     Kind = "image"
	KindVideo     Kind = "video"
	KindEmbedding Kind = "embedding"
	KindRealtime  Kind = "realtime"
	KindComputer  Kind = "computer"
	KindTTS       Kind = "tts"
	KindSTT       Kind = "stt"
)

// Kinds lists every catalog kind in canonical order.
var Kinds = []Kind{
	KindChat,
	KindImage,
	KindVideo,
	KindEmbedding,
	KindRealtime,
	KindComputer,
	KindTTS,
	KindSTT,
}

// ParseKind converts a string into a Kind. The second return value is false
// for unknown kinds.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Model is a single model offered by an engine. Models are replaced
// wholesale on every catalog refresh and never mutated in place.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Meta Meta   `json:"meta,omitempty"`
}

// ModelsList is the complete catalog of an engine. Every kind is always
// present; kinds an engine does not support hold an empty sequence.
type ModelsList struct {
	Chat      []Model `json:"chat"`
	Image     []Model `json:"image"`
	Video     []Model `json:"video"`
	Embedding []Model `json:"embedding"`
	Realtime  []Model `json:"realtime"`
	Computer  []Model `json:"computer"`
	TTS       []Model `json:"tts"`
	STT       []Model `json:"stt"`
}

// NewModelsList returns a catalog with every kind set to an empty sequence.
func NewModelsList() *ModelsList {
	l := &ModelsList{}
	l.Normalize()
	return l
}

// ChatCatalog wraps chat models into a full catalog whose other seven kinds
// are empty.
func ChatCatalog(chat []Model) *ModelsList {
	l := &ModelsList{Chat: chat}
	l.Normalize()
	return l
}

// Normalize replaces nil sequences with empty ones so that every kind is
// present when the catalog is encoded.
func (l *ModelsList) Normalize() {
	for _, k := range Kinds {
		p := l.slot(k)
		if *p == nil {
			*p = []Model{}
		}
	}
}

// Models returns the sequence for the given kind. A nil catalog or an
// unknown kind yields nil.
func (l *ModelsList) Models(kind Kind) []Model {
	if l == nil {
		return nil
	}
	p := l.slot(kind)
	if p == nil {
		return nil
	}
	return *p
}

// Len returns the total number of models across all kinds.
func (l *ModelsList) Len() int {
	if l == nil {
		return 0
	}
	n := 0
	for _, k := range Kinds {
		n += len(*l.slot(k))
	}
	return n
}

// Clone returns a deep copy of the catalog.
func (l *ModelsList) Clone() *ModelsList {
	if l == nil {
		return nil
	}
	out := &ModelsList{}
	for _, k := range Kinds {
		src := *l.slot(k)
		dst := make([]Model, len(src))
		for i, m := range src {
			dst[i] = Model{ID: m.ID, Name: m.Name, Meta: m.Meta.Clone()}
		}
		*out.slot(k) = dst
	}
	return out
}

// MarshalJSON encodes the catalog with all eight kinds present as arrays.
func (l ModelsList) MarshalJSON() ([]byte, error) {
	l.Normalize()
	type plain ModelsList
	return json.Marshal(plain(l))
}

// UnmarshalJSON decodes a catalog and fills in missing kinds.
func (l *ModelsList) UnmarshalJSON(data []byte) error {
	type plain ModelsList
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = ModelsList(p)
	l.Normalize()
	return nil
}

func (l *ModelsList) slot(kind Kind) *[]Model {
	switch kind {
	case KindChat:
		return &l.Chat
	case KindImage:
		return &l.Image
	case KindVideo:
		return &l.Video
	case KindEmbedding:
		return &l.Embedding
	case KindRealtime:
		return &l.Realtime
	case KindComputer:
		return &l.Computer
	case KindTTS:
		return &l.TTS
	case KindSTT:
		return &l.STT
	}
	return nil
}
