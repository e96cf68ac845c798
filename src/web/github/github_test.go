package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGitHub serves just enough of the GitHub REST surface for VerifyUser.
type stubGitHub struct {
	server    *httptest.Server
	createdAt time.Time
	repos     []string
	commits   map[string]int
	starred   map[string]bool
	authSeen  []string
}

func newStubGitHub(t *testing.T) *stubGitHub {
	t.Helper()
	s := &stubGitHub{
		createdAt: time.Now().AddDate(-2, 0, 0),
		commits:   map[string]int{},
		starred:   map[string]bool{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		s.authSeen = append(s.authSeen, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"login":      "alice",
			"html_url":   "https://github.com/alice",
			"repos_url":  s.server.URL + "/users/alice/repos",
			"created_at": s.createdAt.Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/users/alice/repos", func(w http.ResponseWriter, r *http.Request) {
		out := make([]map[string]string, 0, len(s.repos))
		for _, name := range s.repos {
			out = append(out, map[string]string{"name": name})
		}
		json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/repos/alice/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/repos/alice/"), "/commits")
		n, ok := s.commits[name]
		if !ok {
			// Empty repositories answer 409 on the commits listing.
			w.WriteHeader(http.StatusConflict)
			return
		}
		commits := make([]map[string]string, n)
		for i := range commits {
			commits[i] = map[string]string{"sha": fmt.Sprintf("c%d", i)}
		}
		json.NewEncoder(w).Encode(commits)
	})
	mux.HandleFunc("/user/starred/", func(w http.ResponseWriter, r *http.Request) {
		repo := strings.TrimPrefix(r.URL.Path, "/user/starred/")
		if s.starred[repo] {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)
	return s
}

func (s *stubGitHub) client() *Client {
	return NewClientWithBase(s.server.URL, s.server.URL+"/login/oauth/access_token")
}

func baseRequirements() Requirements {
	return Requirements{
		MinAccountAgeMonths: 6,
		MinPublicRepos:      1,
		MinCommits:          5,
		RequiredRepos:       []string{"Concordium/concordium-node"},
	}
}

func TestVerifyUserQualifies(t *testing.T) {
	stub := newStubGitHub(t)
	stub.repos = []string{"project-a", "project-b"}
	stub.commits = map[string]int{"project-a": 3, "project-b": 4}
	stub.starred["Concordium/concordium-node"] = true

	res, err := stub.client().VerifyUser(context.Background(), "tok", baseRequirements())
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/alice", res.ProfileURL)
	assert.Empty(t, res.Problems)

	require.NotEmpty(t, stub.authSeen)
	assert.Equal(t, "Bearer tok", stub.authSeen[0])
}

func TestVerifyUserAccountTooNew(t *testing.T) {
	stub := newStubGitHub(t)
	stub.createdAt = time.Now().AddDate(0, -2, 0)
	stub.repos = []string{"project-a"}
	stub.commits = map[string]int{"project-a": 10}
	stub.starred["Concordium/concordium-node"] = true

	res, err := stub.client().VerifyUser(context.Background(), "tok", baseRequirements())
	require.NoError(t, err)
	require.Len(t, res.Problems, 1)
	assert.Contains(t, res.Problems[0], "too new")
}

func TestVerifyUserCollectsAllProblems(t *testing.T) {
	stub := newStubGitHub(t)
	stub.createdAt = time.Now().AddDate(0, -1, 0)
	// No repos, no commits, nothing starred.

	res, err := stub.client().VerifyUser(context.Background(), "tok", baseRequirements())
	require.NoError(t, err)
	require.Len(t, res.Problems, 4)
	assert.Contains(t, res.Problems[1], "public repository")
	assert.Contains(t, res.Problems[2], "commits")
	assert.Contains(t, res.Problems[3], "star the following")
	assert.Contains(t, res.Problems[3], "Concordium/concordium-node")
}

func TestVerifyUserSkipsEmptyRepos(t *testing.T) {
	stub := newStubGitHub(t)
	stub.repos = []string{"empty-repo", "project-a"}
	// "empty-repo" has no commits entry, so the stub answers 409 for it.
	stub.commits = map[string]int{"project-a": 6}
	stub.starred["Concordium/concordium-node"] = true

	res, err := stub.client().VerifyUser(context.Background(), "tok", baseRequirements())
	require.NoError(t, err)
	assert.Empty(t, res.Problems)
}

func TestVerifyUserMissingStars(t *testing.T) {
	stub := newStubGitHub(t)
	stub.repos = []string{"project-a"}
	stub.commits = map[string]int{"project-a": 10}

	reqs := baseRequirements()
	reqs.RequiredRepos = []string{"Concordium/concordium-node", "Concordium/concordium-rust-sdk"}

	res, err := stub.client().VerifyUser(context.Background(), "tok", reqs)
	require.NoError(t, err)
	require.Len(t, res.Problems, 1)
	assert.Contains(t, res.Problems[0], "Concordium/concordium-node, Concordium/concordium-rust-sdk")
}

func TestExchangeCode(t *testing.T) {
	var gotBody map[string]string
	oauth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_test"})
	}))
	defer oauth.Close()

	c := NewClientWithBase("http://unused.invalid", oauth.URL)
	token, err := c.ExchangeCode(context.Background(), "cid", "secret", "code123")
	require.NoError(t, err)
	assert.Equal(t, "gho_test", token)
	assert.Equal(t, map[string]string{
		"client_id":     "cid",
		"client_secret": "secret",
		"code":          "code123",
	}, gotBody)
}

func TestExchangeCodeNoToken(t *testing.T) {
	oauth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "bad_verification_code"})
	}))
	defer oauth.Close()

	c := NewClientWithBase("http://unused.invalid", oauth.URL)
	_, err := c.ExchangeCode(context.Background(), "cid", "secret", "expired")
	assert.Error(t, err)
}
