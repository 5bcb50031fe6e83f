package pipeline

import (
	"strings"

	"github.com/google/uuid"

	"github.com/c360studio/adw/artifact"
)

// NewADWID generates a workflow run identifier, e.g. 3f2a9c81. Workflow
// branches are derived from it with an adw- prefix.
func NewADWID() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return id[:8]
}

// PatchADWID derives a patch workflow ID from its parent run.
func PatchADWID(parentID string) string {
	return parentID + artifact.PatchSuffix
}
