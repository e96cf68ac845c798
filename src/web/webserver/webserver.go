package webserver

import (
	"fmt"
	"html"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/ccdcommunity/rolebot/src/bot/components/devauth"
	"github.com/ccdcommunity/rolebot/src/data"
	"github.com/ccdcommunity/rolebot/src/types"
	"github.com/ccdcommunity/rolebot/src/web/config"
	"github.com/ccdcommunity/rolebot/src/web/github"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
)

// Server handles the GitHub OAuth developer path: the bot issues a
// single-use state token, the browser lands on /callback with it, and a
// qualifying GitHub account earns the developer role.
type Server struct {
	config       config.Config
	store        *data.VerificationStore
	rdb          *redis.Client
	discord      *discordgo.Session
	github       *github.Client
	sanitizer    *bluemonday.Policy
	requirements github.Requirements
}

func New(cfg config.Config, store *data.VerificationStore, rdb *redis.Client, discord *discordgo.Session, gh *github.Client) *Server {
	return &Server{
		config:    cfg,
		store:     store,
		rdb:       rdb,
		discord:   discord,
		github:    gh,
		sanitizer: bluemonday.StrictPolicy(),
		requirements: github.Requirements{
			MinAccountAgeMonths: 3,
			MinPublicRepos:      1,
			MinCommits:          5,
			RequiredRepos:       devauth.RequiredRepos,
		},
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.GET("/auth/github", s.handleAuthRedirect)
	r.GET("/callback", s.handleCallback)
	return r
}

func (s *Server) Run() error {
	return s.Router().Run("0.0.0.0:" + s.config.Port)
}

func (s *Server) handleAuthRedirect(c *gin.Context) {
	state := c.Query("state")
	if state == "" {
		c.String(http.StatusBadRequest, "Error: 'state' is missing.")
		return
	}

	authURL := fmt.Sprintf(
		"https://github.com/login/oauth/authorize?client_id=%s&redirect_uri=%s&scope=read:user,public_repo&state=%s",
		s.config.ClientID, url.QueryEscape(s.config.RedirectURI), url.QueryEscape(state),
	)
	c.Redirect(http.StatusFound, authURL)
}

func (s *Server) handleCallback(c *gin.Context) {
	ctx := c.Request.Context()
	code := c.Query("code")
	state := c.Query("state")

	discordID, ok, err := data.TakeOAuthState(ctx, s.rdb, state)
	if err != nil {
		log.Printf("webserver: oauth state lookup failed: %v", err)
		c.String(http.StatusInternalServerError, "Server error occurred.")
		return
	}
	if !ok {
		s.page(c, "<h1>Verification session expired!</h1><p>To restart the verification process, please initiate it again via Discord.</p>")
		return
	}

	token, err := s.github.ExchangeCode(ctx, s.config.ClientID, s.config.ClientSecret, code)
	if err != nil {
		log.Printf("webserver: token exchange for %s failed: %v", discordID, err)
		s.page(c, "Error: Failed to retrieve access token.")
		return
	}

	result, err := s.github.VerifyUser(ctx, token, s.requirements)
	if err != nil {
		log.Printf("webserver: github validation for %s failed: %v", discordID, err)
		c.String(http.StatusInternalServerError, "Server error occurred.")
		return
	}

	if len(result.Problems) > 0 {
		var items strings.Builder
		for _, p := range result.Problems {
			items.WriteString("<li>" + html.EscapeString(s.sanitizer.Sanitize(p)) + "</li>")
		}
		s.page(c, fmt.Sprintf("<h1>❌ Verification failed!</h1><p>Please fix the following issues:</p><ol>%s</ol>", items.String()))
		return
	}

	profile := s.sanitizer.Sanitize(result.ProfileURL)
	escaped := html.EscapeString(profile)

	used, err := s.store.GithubProfileUsed(ctx, profile)
	if err != nil {
		log.Printf("webserver: duplicate profile check failed: %v", err)
		c.String(http.StatusInternalServerError, "Server error occurred.")
		return
	}
	if used {
		s.duplicatePage(c, escaped)
		return
	}

	rec := &types.Verification{
		DiscordID:     discordID,
		RoleType:      types.RoleDeveloper,
		GithubProfile: &profile,
		VerifiedAt:    time.Now(),
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		if err == data.ErrDuplicate {
			s.duplicatePage(c, escaped)
			return
		}
		log.Printf("webserver: saving developer verification for %s failed: %v", discordID, err)
		c.String(http.StatusInternalServerError, "Server error occurred.")
		return
	}
	log.Printf("Saved Developer verification for user %s", discordID)

	if err := s.discord.GuildMemberRoleAdd(s.config.GuildID, discordID, s.config.DevRoleID); err != nil {
		log.Printf("webserver: dev role grant for %s failed: %v", discordID, err)
		s.page(c, "<h1>⚠️ Verified, but the role could not be assigned.</h1><p>Please contact a moderator on Discord.</p>")
		return
	}
	log.Printf("Dev role assigned to user %s", discordID)

	s.page(c, "<h1>✅ Verification successful! You can now close this page.</h1>")
}

func (s *Server) duplicatePage(c *gin.Context, escapedProfile string) {
	s.page(c, fmt.Sprintf(
		"<h1>⚠️ GitHub profile already used</h1><p>The GitHub profile <a href=%q target=\"_blank\">%s</a> has already been used to verify another Discord account. Please use a different GitHub account.</p>",
		escapedProfile, escapedProfile))
}

func (s *Server) page(c *gin.Context, body string) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
}
