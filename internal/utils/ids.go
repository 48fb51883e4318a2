package utils

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/untoldecay/Distillery/internal/types"
)

// NewID returns a time-ordered UUID for new rows. V7 keeps inserts roughly
// sequential in the index; if the clock source fails we fall back to v4.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// PromptID derives a deterministic ID from the prompt text and its model
// configuration. The same prompt content with the same parameters always maps
// to the same ID, so prompt registration is idempotent.
func PromptID(content string, cfg types.ModelConfig) string {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		cfgJSON = []byte("{}")
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(content+"|"+string(cfgJSON))).String()
}
