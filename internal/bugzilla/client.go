package bugzilla

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	f "github.com/gentoo/pr-assign/pkg/functional"
	"github.com/gentoo/pr-assign/pkg/triage"
)

const apiKeyHeader = "X-BUGZILLA-API-KEY"

// Bugzilla fault codes
const (
	CodeInvalidBug      = 101
	CodeAccountNotFound = 51
)

// Fault is an error reported by Bugzilla itself
type Fault struct {
	Code    int
	Message string
}

func (e *Fault) Error() string {
	return fmt.Sprintf("Bugzilla fault %d: %s", e.Code, e.Message)
}

func (e *Fault) Unwrap() error {
	switch e.Code {
	case CodeAccountNotFound:
		return triage.ErrAccountNotFound
	case CodeInvalidBug:
		return triage.ErrInvalidBug
	}
	return nil
}

type Client struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL string, apiKey string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid Bugzilla URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid Bugzilla URL %q", baseURL)
	}
	return &Client{
		baseURL: u,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type errorResponse struct {
	Error   bool   `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// LookupUsers fails with a Fault if any of names is not a Bugzilla account
func (c *Client) LookupUsers(ctx context.Context, names []string) error {
	query := url.Values{"names": names}
	var resp struct {
		Users []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "rest/user", query, nil, &resp); err != nil {
		return err
	}
	if len(resp.Users) < len(names) {
		return &Fault{Code: CodeAccountNotFound, Message: "fewer users returned than requested"}
	}
	return nil
}

type fieldChange struct {
	Add []string `json:"add"`
}

type bugUpdate struct {
	IDs      []int       `json:"ids"`
	Keywords fieldChange `json:"keywords"`
	SeeAlso  fieldChange `json:"see_also"`
}

// LinkPullRequest adds keyword and a see-also reference to prURL to every bug
func (c *Client) LinkPullRequest(ctx context.Context, ids []int, prURL string, keyword string) error {
	if len(ids) == 0 {
		return nil
	}
	update := bugUpdate{
		IDs:      ids,
		Keywords: fieldChange{Add: []string{keyword}},
		SeeAlso:  fieldChange{Add: []string{prURL}},
	}
	path := "rest/bug/" + strconv.Itoa(ids[0])
	return c.do(ctx, http.MethodPut, path, nil, update, nil)
}

// Assignees returns the account ids the given bugs are assigned to. Unknown bugs
// are skipped.
func (c *Client) Assignees(ctx context.Context, ids []int) ([]int, error) {
	if len(ids) == 0 {
		return []int{}, nil
	}
	query := url.Values{
		"id":             {strings.Join(f.Map(ids, strconv.Itoa), ",")},
		"include_fields": {"id,assigned_to"},
		"permissive":     {"1"},
	}
	var resp struct {
		Bugs []struct {
			ID             int `json:"id"`
			AssignedDetail struct {
				ID int `json:"id"`
			} `json:"assigned_to_detail"`
		} `json:"bugs"`
	}
	if err := c.do(ctx, http.MethodGet, "rest/bug", query, nil, &resp); err != nil {
		return nil, err
	}
	assignees := make([]int, 0, len(resp.Bugs))
	for _, bug := range resp.Bugs {
		assignees = append(assignees, bug.AssignedDetail.ID)
	}
	return assignees, nil
}

func (c *Client) do(ctx context.Context, method string, path string, query url.Values, body any, out any) error {
	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var fault errorResponse
	if jsonErr := json.Unmarshal(data, &fault); jsonErr == nil && fault.Error {
		return &Fault{Code: fault.Code, Message: fault.Message}
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("Bugzilla Error: %s %s: %s", method, u.Path, resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("Bugzilla Error: invalid response: %v", err)
	}
	return nil
}
