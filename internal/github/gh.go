package gh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gentoo/pr-assign/pkg/triage"
	"github.com/google/go-github/v63/github"
)

type NoPRError struct{}

func (e NoPRError) Error() string {
	return "PR not initialized"
}

type Client interface {
	SetWarningBuffer(writer io.Writer)
	SetInfoBuffer(writer io.Writer)
	GetTokenUser() (string, error)
	ListOpenPullRequests() ([]*github.Issue, error)
	GetIssue(number int) (*github.Issue, error)
	InitPR(prID int) error
	PR() *github.PullRequest
	EditTitle(title string) error
	ListFiles() ([]triage.ChangedPath, error)
	CommitMessages() ([]string, error)
	InitComments() error
	DeleteComments(author string, marker string) (int, error)
	AddComment(comment string) error
	RemoveLabel(label string) error
	AddLabels(labels []string) error
	DownloadRaw(rawURL string) ([]byte, error)
}

type GHClient struct {
	ctx           context.Context
	owner         string
	repo          string
	client        *github.Client
	pr            *github.PullRequest
	comments      []*github.IssueComment
	warningBuffer io.Writer
	infoBuffer    io.Writer
}

// NewClient creates a client for owner/repo. A zero timeout means no timeout.
func NewClient(ctx context.Context, owner, repo, token string, timeout time.Duration) Client {
	httpClient := &http.Client{Timeout: timeout}
	client := github.NewClient(httpClient).WithAuthToken(token)
	return &GHClient{
		ctx:           ctx,
		owner:         owner,
		repo:          repo,
		client:        client,
		warningBuffer: io.Discard,
		infoBuffer:    io.Discard,
	}
}

func (gh *GHClient) PR() *github.PullRequest {
	return gh.pr
}

func (gh *GHClient) SetWarningBuffer(writer io.Writer) {
	gh.warningBuffer = writer
}

func (gh *GHClient) SetInfoBuffer(writer io.Writer) {
	gh.infoBuffer = writer
}

func (gh *GHClient) GetTokenUser() (string, error) {
	user, _, err := gh.client.Users.Get(gh.ctx, "")
	if err != nil {
		return "", err
	}
	return user.GetLogin(), nil
}

// ListOpenPullRequests lists the open issues of the repository that are pull requests.
// Issues carry the labels and assignees used for triage.
func (gh *GHClient) ListOpenPullRequests() ([]*github.Issue, error) {
	allIssues := make([]*github.Issue, 0)
	listIssues := func(page int) (*github.Response, error) {
		listOptions := &github.IssueListByRepoOptions{State: "open", ListOptions: github.ListOptions{PerPage: 50, Page: page}}
		issues, res, err := gh.client.Issues.ListByRepo(gh.ctx, gh.owner, gh.repo, listOptions)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = res.Body.Close()
		}()
		for _, issue := range issues {
			if issue.IsPullRequest() {
				allIssues = append(allIssues, issue)
			}
		}
		return res, err
	}
	if err := walkPaginatedApi(listIssues); err != nil {
		return nil, err
	}
	return allIssues, nil
}

func (gh *GHClient) GetIssue(number int) (*github.Issue, error) {
	issue, res, err := gh.client.Issues.Get(gh.ctx, gh.owner, gh.repo, number)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if !issue.IsPullRequest() {
		return nil, fmt.Errorf("#%d is not a pull request", number)
	}
	return issue, nil
}

func (gh *GHClient) InitPR(prID int) error {
	pull, res, err := gh.client.PullRequests.Get(gh.ctx, gh.owner, gh.repo, prID)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	gh.pr = pull
	gh.comments = nil
	return nil
}

func (gh *GHClient) EditTitle(title string) error {
	if gh.pr == nil {
		return &NoPRError{}
	}
	_, res, err := gh.client.Issues.Edit(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), &github.IssueRequest{Title: &title})
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	gh.pr.Title = &title
	return nil
}

// ListFiles returns the changed files of the PR. Removed files have no raw URL.
func (gh *GHClient) ListFiles() ([]triage.ChangedPath, error) {
	if gh.pr == nil {
		return nil, &NoPRError{}
	}
	allFiles := make([]triage.ChangedPath, 0)
	listFiles := func(page int) (*github.Response, error) {
		listOptions := &github.ListOptions{PerPage: 100, Page: page}
		files, res, err := gh.client.PullRequests.ListFiles(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), listOptions)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = res.Body.Close()
		}()
		for _, file := range files {
			rawURL := file.GetRawURL()
			if file.GetStatus() == "removed" {
				rawURL = ""
			}
			allFiles = append(allFiles, triage.NewChangedPath(file.GetFilename(), rawURL))
		}
		return res, err
	}
	if err := walkPaginatedApi(listFiles); err != nil {
		return nil, err
	}
	return allFiles, nil
}

func (gh *GHClient) CommitMessages() ([]string, error) {
	if gh.pr == nil {
		return nil, &NoPRError{}
	}
	messages := make([]string, 0)
	listCommits := func(page int) (*github.Response, error) {
		listOptions := &github.ListOptions{PerPage: 100, Page: page}
		commits, res, err := gh.client.PullRequests.ListCommits(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), listOptions)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = res.Body.Close()
		}()
		for _, commit := range commits {
			messages = append(messages, commit.GetCommit().GetMessage())
		}
		return res, err
	}
	if err := walkPaginatedApi(listCommits); err != nil {
		return nil, err
	}
	return messages, nil
}

func (gh *GHClient) InitComments() error {
	if gh.pr == nil {
		return &NoPRError{}
	}
	allComments := make([]*github.IssueComment, 0)
	listComments := func(page int) (*github.Response, error) {
		listOptions := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100, Page: page}}
		comments, res, err := gh.client.Issues.ListComments(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), listOptions)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = res.Body.Close()
		}()
		allComments = append(allComments, comments...)
		return res, err
	}
	err := walkPaginatedApi(listComments)
	if err != nil {
		return err
	}
	gh.comments = allComments
	return nil
}

// DeleteComments deletes the comments written by author that contain marker
func (gh *GHClient) DeleteComments(author string, marker string) (int, error) {
	if gh.pr == nil {
		return 0, &NoPRError{}
	}
	if gh.comments == nil {
		if err := gh.InitComments(); err != nil {
			return 0, err
		}
	}
	deleted := 0
	kept := make([]*github.IssueComment, 0, len(gh.comments))
	for i, comment := range gh.comments {
		if !strings.EqualFold(comment.GetUser().GetLogin(), author) || !strings.Contains(comment.GetBody(), marker) {
			kept = append(kept, comment)
			continue
		}
		res, err := gh.client.Issues.DeleteComment(gh.ctx, gh.owner, gh.repo, comment.GetID())
		if err != nil {
			gh.comments = append(kept, gh.comments[i:]...)
			return deleted, err
		}
		_ = res.Body.Close()
		_, _ = fmt.Fprintf(gh.infoBuffer, "Deleted comment %d\n", comment.GetID())
		deleted++
	}
	gh.comments = kept
	return deleted, nil
}

func (gh *GHClient) AddComment(comment string) error {
	if gh.pr == nil {
		return &NoPRError{}
	}
	createCommentOptions := &github.IssueComment{
		Body: &comment,
	}
	_, res, err := gh.client.Issues.CreateComment(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), createCommentOptions)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	return err
}

func (gh *GHClient) RemoveLabel(label string) error {
	if gh.pr == nil {
		return &NoPRError{}
	}
	res, err := gh.client.Issues.RemoveLabelForIssue(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), label)
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	return nil
}

func (gh *GHClient) AddLabels(labels []string) error {
	if gh.pr == nil {
		return &NoPRError{}
	}
	if len(labels) == 0 {
		return nil
	}
	_, res, err := gh.client.Issues.AddLabelsToIssue(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), labels)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	return nil
}

// DownloadRaw fetches a raw file URL as reported by the files API
func (gh *GHClient) DownloadRaw(rawURL string) ([]byte, error) {
	req, err := gh.client.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	res, err := gh.client.Do(gh.ctx, req, &buf)
	if err != nil {
		return nil, err
	}
	_ = res.Body.Close()
	return buf.Bytes(), nil
}

func walkPaginatedApi(apiCall func(int) (*github.Response, error)) error {
	page := 1
	for {
		res, err := apiCall(page)
		if err != nil {
			return err
		}
		if res.NextPage == 0 {
			break
		}
		page = res.NextPage
	}
	return nil
}
