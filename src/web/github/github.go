package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ccdcommunity/rolebot/src/webclient"
)

// Client talks to the GitHub OAuth and REST APIs for the developer
// verification path.
type Client struct {
	httpClient *http.Client
	apiURL     string
	oauthURL   string
}

func NewClient() *Client {
	return &Client{
		httpClient: webclient.NewDefault(30 * time.Second),
		apiURL:     "https://api.github.com",
		oauthURL:   "https://github.com/login/oauth/access_token",
	}
}

// NewClientWithBase points the client at alternate endpoints, used by tests.
func NewClientWithBase(apiURL, oauthURL string) *Client {
	c := NewClient()
	c.apiURL = apiURL
	c.oauthURL = oauthURL
	return c
}

// Requirements describe what a GitHub account must satisfy to earn the
// developer role.
type Requirements struct {
	MinAccountAgeMonths int
	MinPublicRepos      int
	MinCommits          int
	RequiredRepos       []string
}

// Result carries the verified profile URL and any unmet requirements.
// Problems are user-facing; an empty list means the account qualifies.
type Result struct {
	ProfileURL string
	Problems   []string
}

type user struct {
	Login     string    `json:"login"`
	HTMLURL   string    `json:"html_url"`
	ReposURL  string    `json:"repos_url"`
	CreatedAt time.Time `json:"created_at"`
}

type repo struct {
	Name string `json:"name"`
}

// ExchangeCode swaps an OAuth authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, clientID, clientSecret, code string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     clientID,
		"client_secret": clientSecret,
		"code":          code,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauthURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("github: no access token in OAuth response")
	}
	return token.AccessToken, nil
}

// VerifyUser checks the token's account against the requirements and
// returns the profile URL plus any unmet conditions.
func (c *Client) VerifyUser(ctx context.Context, token string, reqs Requirements) (Result, error) {
	var u user
	if _, err := c.getJSON(ctx, c.apiURL+"/user", token, &u); err != nil {
		return Result{}, fmt.Errorf("github: fetch user: %w", err)
	}

	result := Result{ProfileURL: u.HTMLURL}

	var repos []repo
	if _, err := c.getJSON(ctx, u.ReposURL, token, &repos); err != nil {
		return Result{}, fmt.Errorf("github: fetch repos: %w", err)
	}

	now := time.Now()
	months := (now.Year()-u.CreatedAt.Year())*12 + int(now.Month()) - int(u.CreatedAt.Month())
	if months < reqs.MinAccountAgeMonths {
		result.Problems = append(result.Problems,
			fmt.Sprintf("Your GitHub account is too new (%d months old). It must be at least %d months old.", months, reqs.MinAccountAgeMonths))
	}

	if len(repos) < reqs.MinPublicRepos {
		result.Problems = append(result.Problems,
			fmt.Sprintf("You must have at least %d public repository.", reqs.MinPublicRepos))
	}

	totalCommits := 0
	for _, r := range repos {
		var commits []json.RawMessage
		status, err := c.getJSON(ctx, fmt.Sprintf("%s/repos/%s/%s/commits", c.apiURL, u.Login, r.Name), token, &commits)
		if err != nil || status != http.StatusOK {
			// Empty repositories 409 here; skip them like any other failure.
			continue
		}
		totalCommits += len(commits)
		if totalCommits >= reqs.MinCommits {
			break
		}
	}
	if totalCommits < reqs.MinCommits {
		result.Problems = append(result.Problems,
			fmt.Sprintf("You have only %d commits. Minimum required is %d.", totalCommits, reqs.MinCommits))
	}

	var missing []string
	for _, required := range reqs.RequiredRepos {
		status, err := c.getJSON(ctx, fmt.Sprintf("%s/user/starred/%s", c.apiURL, required), token, nil)
		if err != nil {
			return Result{}, fmt.Errorf("github: check star %s: %w", required, err)
		}
		if status == http.StatusNotFound {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		msg := "You must star the following repositories: "
		for i, name := range missing {
			if i > 0 {
				msg += ", "
			}
			msg += name
		}
		result.Problems = append(result.Problems, msg)
	}

	return result, nil
}

// getJSON fetches a URL with the token, retrying transient failures, and
// decodes into v when v is non-nil and the response is 2xx.
func (c *Client) getJSON(ctx context.Context, url, token string, v interface{}) (int, error) {
	status, body, err := webclient.DoWithRetry(ctx, 3, time.Second, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/vnd.github+json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()

		var buf bytes.Buffer
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			return resp.StatusCode, nil, err
		}
		return resp.StatusCode, buf.Bytes(), nil
	})
	if err != nil {
		return status, err
	}

	if v != nil && status >= 200 && status < 300 {
		if err := json.Unmarshal(body, v); err != nil {
			return status, err
		}
	}
	return status, nil
}
