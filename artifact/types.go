// Package artifact provides per-workflow typed JSON storage for ADW runs.
// Each workflow owns a directory of <artifact-type>.json files; patch
// workflows additionally read shared artifact types through their parent
// workflow's directory.
package artifact

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Type identifies an artifact kind. The set is closed: every pipeline step
// declares its dependencies and outputs in terms of these values.
type Type string

const (
	TypeGitSetup        Type = "git-setup"
	TypeFetchIssue      Type = "fetch-issue"
	TypeClassify        Type = "classify"
	TypePlan            Type = "plan"
	TypeImplement       Type = "implement"
	TypeCodeReview      Type = "code-review"
	TypeReviewFix       Type = "review-fix"
	TypeCodeQuality     Type = "code-quality"
	TypeAcceptance      Type = "acceptance"
	TypeComposeRequest  Type = "compose-request"
	TypeGHPullRequest   Type = "gh-pull-request"
	TypeGlabPullRequest Type = "glab-pull-request"
	TypeFetchPatch      Type = "fetch-patch"
	TypePatchPlan       Type = "patch-plan"
	TypePatchAcceptance Type = "patch-acceptance"
	TypeComposeCommits  Type = "compose-commits"
)

// allTypes indexes every known artifact type for validation.
var allTypes = map[Type]bool{
	TypeGitSetup:        true,
	TypeFetchIssue:      true,
	TypeClassify:        true,
	TypePlan:            true,
	TypeImplement:       true,
	TypeCodeReview:      true,
	TypeReviewFix:       true,
	TypeCodeQuality:     true,
	TypeAcceptance:      true,
	TypeComposeRequest:  true,
	TypeGHPullRequest:   true,
	TypeGlabPullRequest: true,
	TypeFetchPatch:      true,
	TypePatchPlan:       true,
	TypePatchAcceptance: true,
	TypeComposeCommits:  true,
}

// sharedTypes may be read from the parent workflow when a patch workflow
// misses locally. Everything else resolves against the local directory only.
var sharedTypes = map[Type]bool{
	TypeFetchIssue:      true,
	TypeClassify:        true,
	TypePlan:            true,
	TypeComposeRequest:  true,
	TypeGHPullRequest:   true,
	TypeGlabPullRequest: true,
}

// patchSpecificTypes are produced fresh by every patch run and must never
// leak between sibling patch workflows, so parent fallback is forbidden.
var patchSpecificTypes = map[Type]bool{
	TypePatchPlan:       true,
	TypePatchAcceptance: true,
	TypeImplement:       true,
	TypeCodeReview:      true,
	TypeReviewFix:       true,
	TypeCodeQuality:     true,
	TypeAcceptance:      true,
}

// Valid reports whether t is a known artifact type.
func (t Type) Valid() bool {
	return allTypes[t]
}

// Shared reports whether t may be resolved from a parent workflow on a
// local miss.
func (t Type) Shared() bool {
	return sharedTypes[t]
}

// PatchSpecific reports whether t is isolated to the producing workflow.
func (t Type) PatchSpecific() bool {
	return patchSpecificTypes[t]
}

// Filename returns the on-disk file name for this artifact type.
func (t Type) Filename() string {
	return string(t) + ".json"
}

// AllTypes returns every known artifact type, sorted.
func AllTypes() []Type {
	types := make([]Type, 0, len(allTypes))
	for t := range allTypes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// ParseType validates a string as an artifact type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown artifact type: %s", s)
	}
	return t, nil
}

// PatchSuffix marks a workflow ID as a patch run. The parent workflow ID is
// the same string with the suffix stripped.
const PatchSuffix = "-patch"

// IsPatchWorkflow reports whether workflowID names a patch run.
func IsPatchWorkflow(workflowID string) bool {
	return strings.HasSuffix(workflowID, PatchSuffix)
}

// ParentWorkflowID returns the parent workflow ID for a patch workflow, or
// "" when workflowID is not a patch run.
func ParentWorkflowID(workflowID string) string {
	if !IsPatchWorkflow(workflowID) {
		return ""
	}
	return strings.TrimSuffix(workflowID, PatchSuffix)
}

// Artifact is the persisted envelope: identity, timestamp, and the
// type-specific payload.
type Artifact struct {
	WorkflowID string          `json:"workflow_id"`
	Type       Type            `json:"artifact_type"`
	CreatedAt  time.Time       `json:"created_at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// New builds an artifact envelope around a payload value.
func New(workflowID string, t Type, payload any) (*Artifact, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown artifact type: %s", t)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return &Artifact{
		WorkflowID: workflowID,
		Type:       t,
		CreatedAt:  time.Now().UTC(),
		Data:       data,
	}, nil
}

// Decode unmarshals the type-specific payload into v.
func (a *Artifact) Decode(v any) error {
	if len(a.Data) == 0 {
		return fmt.Errorf("artifact %s has no payload", a.Type)
	}
	if err := json.Unmarshal(a.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", a.Type, err)
	}
	return nil
}
