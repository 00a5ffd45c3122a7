package registry

import (
	"github.com/rhuss/enginehub/pkg/api"
	"github.com/rhuss/enginehub/pkg/config"
)

// ValidModelID returns id when the engine's catalog of the given kind
// contains it, otherwise the first model id of that kind. The boolean is
// false when the catalog of that kind is empty or its first model has no id.
func ValidModelID(ec *config.EngineConfig, kind api.Kind, id string) (string, bool) {
	if ec == nil {
		return "", false
	}
	models := ec.Models.Models(kind)
	for _, m := range models {
		if id != "" && m.ID == id {
			return id, true
		}
	}
	if len(models) == 0 || models[0].ID == "" {
		return "", false
	}
	return models[0].ID, true
}
