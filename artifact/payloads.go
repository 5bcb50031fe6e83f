package artifact

// Typed payloads for each artifact kind. Steps build these, the store
// persists them inside the Artifact envelope, and downstream steps decode
// them back.

// Issue classification kinds produced by the classify step.
const (
	ClassTypeBug     = "bug"
	ClassTypeChore   = "chore"
	ClassTypeFeature = "feature"
)

// Complexity levels produced by the classify step.
const (
	LevelSimple   = "simple"
	LevelAverage  = "average"
	LevelComplex  = "complex"
	LevelCritical = "critical"
)

// Acceptance verdicts.
const (
	AcceptanceStatusPass    = "pass"
	AcceptanceStatusFail    = "fail"
	AcceptanceStatusPartial = "partial"
)

// GitSetup records the working-copy preparation for a run.
type GitSetup struct {
	BaseBranch string `json:"base_branch"`
	Branch     string `json:"branch"`
	HeadCommit string `json:"head_commit,omitempty"`
	ResetHard  bool   `json:"reset_hard,omitempty"`
}

// IssueSnapshot is the fetched issue as seen at pipeline start.
type IssueSnapshot struct {
	IssueID     int64  `json:"issue_id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
	IssueType   string `json:"issue_type"`
}

// Classification is the classify step's structured output.
type Classification struct {
	Output string `json:"output"`
	Type   string `json:"type"`
	Level  string `json:"level"`
}

// Plan carries the implementation plan markdown and its summary.
type Plan struct {
	Output  string `json:"output"`
	Plan    string `json:"plan"`
	Summary string `json:"summary"`
}

// Implementation summarises what the implementing agent changed.
type Implementation struct {
	Status        string   `json:"status"`
	FilesModified []string `json:"files_modified,omitempty"`
	GitDiffStat   string   `json:"git_diff_stat,omitempty"`
	Output        string   `json:"output,omitempty"`
	Summary       string   `json:"summary,omitempty"`
}

// CodeReview is the captured reviewer CLI output.
type CodeReview struct {
	Review     string `json:"review"`
	Clean      bool   `json:"clean"`
	BaseCommit string `json:"base_commit,omitempty"`
}

// ReviewFix records one pass of addressing review findings. Clean
// reviews skip the step entirely, so an artifact only exists when at
// least one fix pass ran.
type ReviewFix struct {
	Iteration int    `json:"iteration"`
	Output    string `json:"output,omitempty"`
}

// CodeQuality records the lint/type-check pass.
type CodeQuality struct {
	Passed bool   `json:"passed"`
	Output string `json:"output,omitempty"`
}

// AcceptanceRequirement is one checked requirement in an acceptance run.
type AcceptanceRequirement struct {
	Requirement string `json:"requirement"`
	Met         bool   `json:"met"`
	Blocking    bool   `json:"blocking,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Acceptance is the acceptance agent's verdict.
type Acceptance struct {
	Requirements              []AcceptanceRequirement `json:"requirements"`
	UnmetBlockingRequirements []string                `json:"unmet_blocking_requirements"`
	Status                    string                  `json:"status"`
}

// ComposeRequest is the prepared pull-request metadata.
type ComposeRequest struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Commits []string `json:"commits,omitempty"`
	Branch  string   `json:"branch,omitempty"`
}

// PullRequest records the created (or pre-existing) PR/MR.
type PullRequest struct {
	Output   string `json:"output"`
	URL      string `json:"url"`
	Existing bool   `json:"existing,omitempty"`
	Platform string `json:"platform"`
}

// PatchRequest is the fetched patch issue plus its parent linkage.
type PatchRequest struct {
	IssueID     int64  `json:"issue_id"`
	Description string `json:"description"`
	ParentADWID string `json:"parent_adw_id,omitempty"`
}

// ComposeCommits records the patch workflow's commit push against the
// existing pull request.
type ComposeCommits struct {
	URL      string   `json:"url,omitempty"`
	Messages []string `json:"messages,omitempty"`
	Pushed   bool     `json:"pushed"`
}
