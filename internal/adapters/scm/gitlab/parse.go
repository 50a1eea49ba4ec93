package gitlab

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	perr "aggbridge/internal/platform/errors"
	"aggbridge/internal/services/scmagg/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseCommit decodes a GitLab repository commit document.
func ParseCommit(raw []byte, repoID, integrationID, branch string) (domain.Commit, error) {
	var doc CommitDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Commit{}, perr.Parsef("gitlab commit: %v", err)
	}
	return MapCommit(doc, repoID, integrationID, branch)
}

// MapCommit converts a decoded commit document into the domain shape.
func MapCommit(doc CommitDoc, repoID, integrationID, branch string) (domain.Commit, error) {
	if err := validate.Struct(doc); err != nil {
		return domain.Commit{}, perr.Parsef("gitlab commit %q: %v", doc.ID, err)
	}
	committed, err := parseTime(doc.CommittedDate)
	if err != nil {
		return domain.Commit{}, perr.Parsef("gitlab commit %q committed_date: %v", doc.ID, err)
	}

	c := domain.Commit{
		SHA:           doc.ID,
		RepoID:        repoID,
		IntegrationID: integrationID,
		Provider:      domain.ProviderGitLab,
		Branch:        branch,
		Message:       doc.Message,
		AuthorName:    doc.AuthorName,
		AuthorEmail:   doc.AuthorEmail,
		CommittedAt:   committed,
	}
	if c.Message == "" {
		c.Message = doc.Title
	}
	if doc.Stats != nil {
		c.Additions = doc.Stats.Additions
		c.Deletions = doc.Stats.Deletions
		c.Changes = doc.Stats.Total
	}
	return c, nil
}

// ParseMergeRequest decodes a GitLab merge request document.
func ParseMergeRequest(raw []byte, repoID, integrationID string) (domain.PullRequest, error) {
	var doc MergeRequestDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.PullRequest{}, perr.Parsef("gitlab merge request: %v", err)
	}
	return MapMergeRequest(doc, repoID, integrationID)
}

// MapMergeRequest converts a decoded merge request document into the domain shape.
func MapMergeRequest(doc MergeRequestDoc, repoID, integrationID string) (domain.PullRequest, error) {
	if err := validate.Struct(doc); err != nil {
		return domain.PullRequest{}, perr.Parsef("gitlab merge request %d: %v", doc.IID, err)
	}
	created, err := parseTime(doc.CreatedAt)
	if err != nil {
		return domain.PullRequest{}, perr.Parsef("gitlab merge request %d created_at: %v", doc.IID, err)
	}
	updated, err := parseTime(doc.UpdatedAt)
	if err != nil {
		return domain.PullRequest{}, perr.Parsef("gitlab merge request %d updated_at: %v", doc.IID, err)
	}

	pr := domain.PullRequest{
		Number:         doc.IID,
		RepoID:         repoID,
		IntegrationID:  integrationID,
		Provider:       domain.ProviderGitLab,
		Title:          doc.Title,
		State:          doc.State,
		SourceBranch:   doc.SourceBranch,
		TargetBranch:   doc.TargetBranch,
		Labels:         doc.Labels,
		Reviews:        len(doc.Reviewers),
		CreatedAt:      created,
		UpdatedAt:      updated,
		MergeCommitSHA: doc.MergeCommitSHA,
	}
	if pr.MergeCommitSHA == "" {
		pr.MergeCommitSHA = doc.SquashSHA
	}
	if doc.MergedAt != nil && *doc.MergedAt != "" {
		merged, err := parseTime(*doc.MergedAt)
		if err != nil {
			return domain.PullRequest{}, perr.Parsef("gitlab merge request %d merged_at: %v", doc.IID, err)
		}
		pr.MergedAt = &merged
	}
	return pr, nil
}

// ParsePushHook decodes a GitLab push webhook payload into one push event.
//
// Pushed-at comes from the payload's own commit timestamps (newest wins) so
// a replayed delivery reconciles to the same rows; receivedAt is only the
// fallback for payloads carrying no commits.
func ParsePushHook(raw []byte, repoID, integrationID string, receivedAt int64) (domain.PushEvent, error) {
	var doc PushHookDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.PushEvent{}, perr.Parsef("gitlab push hook: %v", err)
	}
	if err := validate.Struct(doc); err != nil {
		return domain.PushEvent{}, perr.Parsef("gitlab push hook: %v", err)
	}

	push := domain.PushEvent{
		RepoID:        repoID,
		IntegrationID: integrationID,
		Provider:      domain.ProviderGitLab,
		Branch:        strings.TrimPrefix(doc.Ref, "refs/heads/"),
	}
	for _, hc := range doc.Commits {
		committed, err := parseTime(hc.Timestamp)
		if err != nil {
			return domain.PushEvent{}, perr.Parsef("gitlab push hook commit %q: %v", hc.ID, err)
		}
		push.Commits = append(push.Commits, domain.Commit{
			SHA:         hc.ID,
			Message:     hc.Message,
			AuthorName:  hc.Author.Name,
			AuthorEmail: hc.Author.Email,
			CommittedAt: committed,
			PushedAt:    committed,
		})
		if committed > push.PushedAt {
			push.PushedAt = committed
		}
	}
	if push.PushedAt == 0 {
		push.PushedAt = receivedAt
	}
	return push, nil
}

// parseTime accepts GitLab's RFC 3339 timestamps with or without fractional seconds.
func parseTime(s string) (int64, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
