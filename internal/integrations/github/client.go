// Package github checks that a token can read a repository.
package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/domain"
)

type Credentials struct {
	Token string `json:"token"`
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

func (c Credentials) validate() error {
	var missing []string
	if c.Token == "" {
		missing = append(missing, "token")
	}
	if c.Owner == "" {
		missing = append(missing, "owner")
	}
	if c.Repo == "" {
		missing = append(missing, "repo")
	}
	if len(missing) > 0 {
		return &domain.ValidationError{Message: "missing required fields: " + strings.Join(missing, ", ")}
	}
	return nil
}

// RepositorySummary is the part of the GitHub repository payload the
// dashboard shows after a successful connection test.
type RepositorySummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	Private  bool   `json:"private"`
}

type Client struct {
	baseURL *url.URL
	timeout time.Duration
}

// NewClient talks to api.github.com when baseURL is empty.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	c := &Client{timeout: timeout}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, err
		}
		c.baseURL = u
	}
	return c, nil
}

func (c *Client) api(ctx context.Context, token string) *gh.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = c.timeout

	client := gh.NewClient(httpClient)
	if c.baseURL != nil {
		client.BaseURL = c.baseURL
	}
	return client
}

// TestConnection fetches the repository metadata with the given token.
func (c *Client) TestConnection(ctx context.Context, creds Credentials) (*RepositorySummary, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	repo, resp, err := c.api(ctx, creds.Token).Repositories.Get(ctx, creds.Owner, creds.Repo)
	if err != nil {
		return nil, upstreamError(resp, err)
	}
	if repo.GetName() == "" {
		return nil, &domain.UpstreamError{Service: "github", Status: http.StatusBadGateway, Body: "repository payload without name"}
	}

	return &RepositorySummary{
		ID:       repo.GetID(),
		Name:     repo.GetName(),
		FullName: repo.GetFullName(),
		Private:  repo.GetPrivate(),
	}, nil
}

func upstreamError(resp *gh.Response, err error) error {
	uerr := &domain.UpstreamError{Service: "github", Err: err}
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		uerr.Body = ghErr.Message
	}
	if resp != nil && resp.Response != nil {
		uerr.Status = resp.StatusCode
	}
	if uerr.Body == "" {
		uerr.Body = err.Error()
	}
	return uerr
}
