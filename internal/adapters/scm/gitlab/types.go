// Package gitlab maps partial GitLab REST documents onto SCM domain types.
package gitlab

// CommitDoc is the subset of a GitLab repository commit we consume.
type CommitDoc struct {
	ID            string    `json:"id" validate:"required"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	AuthorName    string    `json:"author_name"`
	AuthorEmail   string    `json:"author_email"`
	AuthoredDate  string    `json:"authored_date"`
	CommittedDate string    `json:"committed_date" validate:"required"`
	Stats         *StatsDoc `json:"stats"`
}

// StatsDoc carries line counts when the commit was fetched with stats.
type StatsDoc struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Total     int `json:"total"`
}

// MergeRequestDoc is the subset of a GitLab merge request we consume.
type MergeRequestDoc struct {
	IID            int        `json:"iid" validate:"required"`
	Title          string     `json:"title"`
	State          string     `json:"state"`
	SourceBranch   string     `json:"source_branch"`
	TargetBranch   string     `json:"target_branch"`
	CreatedAt      string     `json:"created_at" validate:"required"`
	UpdatedAt      string     `json:"updated_at" validate:"required"`
	MergedAt       *string    `json:"merged_at"`
	MergeCommitSHA string     `json:"merge_commit_sha"`
	SquashSHA      string     `json:"squash_commit_sha"`
	Labels         []string   `json:"labels"`
	Reviewers      []UserRef  `json:"reviewers"`
	Author         *UserRef   `json:"author"`
	Pipeline       *StatusRef `json:"pipeline"`
}

// UserRef identifies a GitLab user on a merge request.
type UserRef struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

// StatusRef carries the state of an attached pipeline.
type StatusRef struct {
	Status string `json:"status"`
}

// PushHookDoc is the subset of a GitLab push webhook payload we consume.
type PushHookDoc struct {
	ObjectKind string          `json:"object_kind" validate:"required,eq=push"`
	Ref        string          `json:"ref" validate:"required"`
	ProjectID  int             `json:"project_id"`
	Commits    []HookCommitDoc `json:"commits"`
}

// HookCommitDoc is a commit as embedded in a push webhook.
type HookCommitDoc struct {
	ID        string         `json:"id" validate:"required"`
	Message   string         `json:"message"`
	Timestamp string         `json:"timestamp" validate:"required"`
	Author    HookAuthorDoc  `json:"author"`
	Added     []string       `json:"added"`
	Modified  []string       `json:"modified"`
	Removed   []string       `json:"removed"`
}

// HookAuthorDoc names a push hook commit author.
type HookAuthorDoc struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
