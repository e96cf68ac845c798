package devauth

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/ccdcommunity/rolebot/src/data"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// stateTTL bounds how long an issued OAuth link stays redeemable.
const stateTTL = 15 * time.Minute

// RequiredRepos are the repositories a developer must star. The web server
// checks the same list against the GitHub API.
var RequiredRepos = []string{
	"Concordium/concordium-dapp-examples",
	"Concordium/concordium-rust-smart-contracts",
	"Concordium/concordium-node",
	"Concordium/concordium-rust-sdk",
	"Concordium/concordium-node-sdk-js",
}

type Membership interface {
	HasRole(userID, roleID string) (bool, error)
}

type Config struct {
	Redis     *redis.Client
	Members   Membership
	DevRoleID string
	ClientID  string
	ServerURL string
}

// Handler starts the GitHub OAuth developer path: it binds a single-use
// state token to the requesting user in Redis and hands back the OAuth
// link. The web server redeems the token on callback.
type Handler struct {
	config Config
}

func NewHandler(config Config) *Handler {
	return &Handler{config: config}
}

// Start returns the text shown privately to the user.
func (h *Handler) Start(ctx context.Context, userID string) string {
	has, err := h.config.Members.HasRole(userID, h.config.DevRoleID)
	if err != nil {
		log.Printf("devauth: membership lookup for %s failed: %v", userID, err)
		return "❌ Failed to generate GitHub auth link. Please try again later."
	}
	if has {
		return "✅ You already have the **Dev** role — no need to verify again."
	}

	state := uuid.NewString()
	if err := data.SaveOAuthState(ctx, h.config.Redis, state, userID, stateTTL); err != nil {
		log.Printf("devauth: saving oauth state for %s failed: %v", userID, err)
		return "❌ Failed to generate GitHub auth link. Please try again later."
	}

	return h.requirementsMessage(state)
}

func (h *Handler) requirementsMessage(state string) string {
	authURL := fmt.Sprintf(
		"https://github.com/login/oauth/authorize?client_id=%s&redirect_uri=%s&scope=read:user,public_repo&state=%s",
		h.config.ClientID,
		url.QueryEscape(h.config.ServerURL+"/callback"),
		state,
	)

	msg := fmt.Sprintf("**<@&%s> Role Verification**\n\nBefore proceeding, please make sure you meet the following requirements:\n\n", h.config.DevRoleID)
	msg += "✅ Your GitHub account must be at least 3 months old\n"
	msg += "✅ You must have at least 1 public repository\n"
	msg += "✅ You must have at least 5 commits\n"
	msg += "✅ You must star the following repositories:\n\n"
	for _, repo := range RequiredRepos {
		msg += fmt.Sprintf("<https://github.com/%s>\n", repo)
	}
	msg += fmt.Sprintf("\n🔗 **[Click Here to Verify](<%s>)**", authURL)
	return msg
}
