package verification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ccdcommunity/rolebot/src/data"
	"github.com/ccdcommunity/rolebot/src/ledger"
	"github.com/ccdcommunity/rolebot/src/types"
)

// Oracle yields typed chain facts. The production implementation is
// ledger.Oracle; tests substitute canned facts.
type Oracle interface {
	ValidatorAddress(ctx context.Context, validatorID string) (string, bool, error)
	StakingStatus(ctx context.Context, address string) (ledger.StakingStatus, error)
	TransactionStatus(ctx context.Context, txHash string) (ledger.TransactionStatus, error)
	BlockTime(ctx context.Context, blockHash string) (time.Time, bool, error)
}

// RecordStore is the durable set of completed verifications. Uniqueness is
// the store's job: Insert must reject duplicates raised by concurrent
// callers even when the pre-checks passed.
type RecordStore interface {
	WalletRegistered(ctx context.Context, wallet, roleType string) (bool, error)
	TxHashUsed(ctx context.Context, txHash string) (bool, error)
	Insert(ctx context.Context, rec *types.Verification) error
}

// Gateway covers the Discord-side effects the engine needs: membership,
// role grants, private threads and messages into them.
type Gateway interface {
	HasRole(userID, roleID string) (bool, error)
	GrantRole(userID, roleID string) error
	CreateThread(userID, username, prefix string) (string, error)
	ThreadExists(threadID string) bool
	ThreadURL(threadID string) string
	SendMessage(channelID, content string) error
	SendMessageWithButton(channelID, content, buttonID, label string) error
}

type Config struct {
	Role      RoleConfig
	Oracle    Oracle
	Records   RecordStore
	Sessions  SessionStore
	Gateway   Gateway
	Freshness time.Duration
	Now       func() time.Time
}

// Engine runs one role's verification flow: collect an identifier, demand a
// distinguishing transfer-with-memo, validate it against the chain and
// record the result exactly once.
type Engine struct {
	role      RoleConfig
	oracle    Oracle
	records   RecordStore
	sessions  SessionStore
	gateway   Gateway
	freshness time.Duration
	now       func() time.Time

	mu       sync.Mutex
	inflight map[string]bool
}

func NewEngine(cfg Config) *Engine {
	if cfg.Freshness <= 0 {
		cfg.Freshness = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		role:      cfg.Role,
		oracle:    cfg.Oracle,
		records:   cfg.Records,
		sessions:  cfg.Sessions,
		gateway:   cfg.Gateway,
		freshness: cfg.Freshness,
		now:       cfg.Now,
		inflight:  make(map[string]bool),
	}
}

func (e *Engine) Role() RoleConfig { return e.role }

// Start handles role selection. The returned text is shown privately to the
// user. Idempotent for users who already hold the role, and re-points to an
// existing thread instead of creating a duplicate.
func (e *Engine) Start(ctx context.Context, userID, username string) string {
	has, err := e.gateway.HasRole(userID, e.role.RoleID)
	if err != nil {
		log.Printf("verification: %s: membership lookup for %s failed: %v", e.role.RoleType, userID, err)
		return fmt.Sprintf("❌ Failed to start %s verification. Please contact a moderator.", strings.ToLower(e.role.RoleType))
	}
	if has {
		return fmt.Sprintf("✅ You already have the **%s** role — no need to verify again.", e.role.RoleType)
	}

	if sess, ok := e.sessions.Get(userID, e.role.RoleType); ok {
		if e.gateway.ThreadExists(sess.ThreadID) {
			return fmt.Sprintf("⚠️ You already have an active verification thread.\n👉 [Open thread](%s)", e.gateway.ThreadURL(sess.ThreadID))
		}
		e.sessions.Delete(userID, e.role.RoleType)
	}

	threadID, err := e.gateway.CreateThread(userID, username, e.role.ThreadPrefix)
	if err != nil {
		log.Printf("verification: %s: thread creation for %s failed: %v", e.role.RoleType, userID, err)
		return fmt.Sprintf("❌ Failed to start %s verification. Please contact a moderator.", strings.ToLower(e.role.RoleType))
	}

	e.sessions.Set(userID, e.role.RoleType, &Session{ThreadID: threadID, Step: StepAwaitingIdentifier})

	if err := e.gateway.SendMessage(threadID, mention(userID)+" "+e.role.promptIdentifier()); err != nil {
		log.Printf("verification: %s: opening prompt for %s failed: %v", e.role.RoleType, userID, err)
	}

	return fmt.Sprintf("📩 Verification started.\n👉 [Click here to open your thread](%s)", e.gateway.ThreadURL(threadID))
}

// Restart resets an existing session to the identifier step, reusing the
// same thread. It never creates a thread: when the old one is gone the
// stale session is dropped and the user is sent back to the role menu.
func (e *Engine) Restart(ctx context.Context, userID string) string {
	sess, ok := e.sessions.Get(userID, e.role.RoleType)
	if !ok {
		return "⚠️ You don't have an active verification thread. Please start the verification using the dropdown menu."
	}

	if !e.gateway.ThreadExists(sess.ThreadID) {
		e.sessions.Delete(userID, e.role.RoleType)
		return "⚠️ Your previous verification thread could not be found. Please start again from the dropdown menu."
	}

	e.sessions.Set(userID, e.role.RoleType, &Session{ThreadID: sess.ThreadID, Step: StepAwaitingIdentifier})

	if err := e.gateway.SendMessage(sess.ThreadID, mention(userID)+" "+e.role.restartPrompt()); err != nil {
		log.Printf("verification: %s: restart prompt for %s failed: %v", e.role.RoleType, userID, err)
	}

	return "🔄 Verification process restarted in your existing thread."
}

// HandleMessage processes one inbound thread message. Returns false when
// the message belongs to no session of this engine, so the caller can offer
// it to other engines. Messages overlapping an in-flight validation for the
// same session are rejected, never processed concurrently: two racing
// messages could otherwise both consume the same slot.
func (e *Engine) HandleMessage(ctx context.Context, userID, channelID, content string) bool {
	sess, ok := e.sessions.Get(userID, e.role.RoleType)
	if !ok || sess.ThreadID != channelID {
		return false
	}

	if !e.begin(userID) {
		e.reply(channelID, "⏳ Verification in progress — please wait for your previous message to finish processing.")
		return true
	}
	defer e.end(userID)

	switch sess.Step {
	case StepAwaitingIdentifier:
		e.handleIdentifier(ctx, userID, sess, strings.TrimSpace(content))
	case StepAwaitingTxHash:
		e.handleTxHash(ctx, userID, sess, strings.ToLower(strings.TrimSpace(content)))
	}
	return true
}

func (e *Engine) handleIdentifier(ctx context.Context, userID string, sess *Session, input string) {
	if !e.role.validIdentifier(input) {
		e.reply(sess.ThreadID, e.role.invalidIdentifierMsg())
		return
	}

	candidate := input
	identifier := input
	if e.role.Identifier == IdentifierNumericID {
		addr, found, err := e.oracle.ValidatorAddress(ctx, input)
		if err != nil {
			log.Printf("verification: %s: validator lookup %q failed: %v", e.role.RoleType, input, err)
		}
		if err != nil || !found {
			e.reply(sess.ThreadID, "❌ Failed to retrieve validator address. Please double-check the ID.")
			return
		}
		candidate = addr
	}

	registered, err := e.records.WalletRegistered(ctx, candidate, e.role.RoleType)
	if err != nil {
		log.Printf("verification: %s: record lookup for %s failed: %v", e.role.RoleType, candidate, err)
		e.reply(sess.ThreadID, "❌ Verification is temporarily unavailable. Please try again later.")
		return
	}
	if registered {
		e.reply(sess.ThreadID, e.role.alreadyRegisteredMsg())
		return
	}

	if e.role.CheckStake {
		status, err := e.oracle.StakingStatus(ctx, candidate)
		if err != nil {
			log.Printf("verification: %s: staking lookup for %s failed: %v", e.role.RoleType, candidate, err)
			e.reply(sess.ThreadID, "❌ Failed to look up the account on chain. Please try again.")
			return
		}
		if !status.HasTarget {
			e.reply(sess.ThreadID, "❌ This address is not currently delegating to any staking pool.")
			return
		}
		if status.StakedAmount.LessThan(e.role.MinStake) {
			e.reply(sess.ThreadID, fmt.Sprintf("❌ Your staked amount is **%s CCD**, which is below the required **%s CCD**.",
				status.StakedAmount.String(), e.role.MinStake.String()))
			return
		}
	}

	sess.CandidateAddress = candidate
	sess.CandidateIdentifier = identifier
	sess.Step = StepAwaitingTxHash
	e.sessions.Set(userID, e.role.RoleType, sess)

	e.reply(sess.ThreadID, e.role.txInstruction(sess))
}

func (e *Engine) handleTxHash(ctx context.Context, userID string, sess *Session, txHash string) {
	if !txHashRe.MatchString(txHash) {
		e.reply(sess.ThreadID, "❌ Please enter a valid 64-character transaction hash.")
		return
	}

	status, err := e.oracle.TransactionStatus(ctx, txHash)
	if err != nil {
		log.Printf("verification: %s: transaction lookup %s failed: %v", e.role.RoleType, txHash, err)
		e.reply(sess.ThreadID, "❌ Failed to look up the transaction. Please try again.")
		return
	}
	if !status.Finalized || !status.Successful {
		e.reply(sess.ThreadID, "❌ Transaction is not finalized or was not successful.")
		return
	}
	if status.Sender == "" || status.Memo == "" || status.BlockHash == "" {
		e.reply(sess.ThreadID, "❌ Could not read transaction details (sender, memo or block). Make sure it is a transfer with a memo.")
		return
	}

	if e.role.RequireSenderMatch && status.Sender != sess.CandidateAddress {
		e.reply(sess.ThreadID, e.role.senderMismatchMsg(sess))
		return
	}
	if status.Memo != sess.CandidateIdentifier {
		e.reply(sess.ThreadID, e.role.memoMismatchMsg(sess))
		return
	}

	blockTime, found, err := e.oracle.BlockTime(ctx, status.BlockHash)
	if err != nil {
		log.Printf("verification: %s: block lookup %s failed: %v", e.role.RoleType, status.BlockHash, err)
	}
	if err != nil || !found {
		e.reply(sess.ThreadID, "❌ Failed to retrieve block timestamp.")
		return
	}

	// Wall clock at validation time; exactly one hour old still passes.
	if e.now().Sub(blockTime) > e.freshness {
		e.reply(sess.ThreadID, "❌ This transaction is older than 1 hour. Please submit a fresh one.")
		return
	}

	used, err := e.records.TxHashUsed(ctx, txHash)
	if err != nil {
		log.Printf("verification: %s: tx hash lookup %s failed: %v", e.role.RoleType, txHash, err)
		e.reply(sess.ThreadID, "❌ Verification is temporarily unavailable. Please try again later.")
		return
	}
	if used {
		e.reply(sess.ThreadID, "❌ This transaction has already been used.")
		return
	}

	wallet := sess.CandidateAddress
	rec := &types.Verification{
		TxHash:        &txHash,
		WalletAddress: &wallet,
		DiscordID:     userID,
		RoleType:      e.role.RoleType,
		VerifiedAt:    e.now(),
	}
	// The insert is the authoritative guard: a concurrent session that won
	// the race surfaces here as a duplicate, not as a double grant.
	if err := e.records.Insert(ctx, rec); err != nil {
		if errors.Is(err, data.ErrDuplicate) {
			e.reply(sess.ThreadID, "❌ This transaction has already been used.")
			return
		}
		log.Printf("verification: %s: record insert for %s failed: %v", e.role.RoleType, userID, err)
		e.reply(sess.ThreadID, "❌ Verification is temporarily unavailable. Please try again later.")
		return
	}

	if err := e.gateway.GrantRole(userID, e.role.RoleID); err != nil {
		// Session is left intact so a moderator can inspect the state.
		log.Printf("verification: %s: role grant for %s failed after record insert (tx %s): %v",
			e.role.RoleType, userID, txHash, err)
		e.reply(sess.ThreadID, "⚠️ You are verified but the role could not be assigned. Please contact a moderator.")
		return
	}

	log.Printf("verification: role %s assigned to user %s", e.role.RoleType, userID)

	if err := e.gateway.SendMessageWithButton(sess.ThreadID, e.role.successMsg(), e.role.DeleteButtonID(), "🗑️ Delete this thread"); err != nil {
		log.Printf("verification: %s: success notice for %s failed: %v", e.role.RoleType, userID, err)
	}

	e.sessions.Delete(userID, e.role.RoleType)
}

func (e *Engine) reply(channelID, content string) {
	if err := e.gateway.SendMessage(channelID, content); err != nil {
		log.Printf("verification: %s: reply to %s failed: %v", e.role.RoleType, channelID, err)
	}
}

func (e *Engine) begin(userID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight[userID] {
		return false
	}
	e.inflight[userID] = true
	return true
}

func (e *Engine) end(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, userID)
}

func mention(userID string) string {
	return "<@" + userID + ">"
}
