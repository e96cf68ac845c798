package verification

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ccdcommunity/rolebot/src/types"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

// IdentifierKind selects what the first step of the flow collects and how
// it maps to a candidate address and expected memo.
type IdentifierKind int

const (
	// IdentifierNumericID is a validator ID, resolved to an address via the
	// ledger; the ID itself becomes the expected memo.
	IdentifierNumericID IdentifierKind = iota
	// IdentifierAccountAddress is an account address used directly as both
	// candidate address and expected memo.
	IdentifierAccountAddress
)

// RoleConfig parametrizes the engine for one role: what identifier it
// collects, whether a staking minimum applies and whether the transaction
// sender is pinned to the candidate address.
type RoleConfig struct {
	RoleType           string
	RoleID             string
	ThreadPrefix       string
	RestartCommand     string
	Identifier         IdentifierKind
	CheckStake         bool
	MinStake           decimal.Decimal
	RequireSenderMatch bool
}

// ValidatorRole pins the sender to the resolved validator address and uses
// the numeric ID as the memo. No staking minimum applies.
func ValidatorRole(roleID string) RoleConfig {
	return RoleConfig{
		RoleType:           types.RoleValidator,
		RoleID:             roleID,
		ThreadPrefix:       "validator",
		RestartCommand:     "start-again-validator",
		Identifier:         IdentifierNumericID,
		RequireSenderMatch: true,
	}
}

// DelegatorRole requires an active delegation of at least minStake CCD. The
// memo must be the submitted address; the sender is not constrained.
func DelegatorRole(roleID string, minStake decimal.Decimal) RoleConfig {
	return RoleConfig{
		RoleType:       types.RoleDelegator,
		RoleID:         roleID,
		ThreadPrefix:   "delegator",
		RestartCommand: "start-again-delegator",
		Identifier:     IdentifierAccountAddress,
		CheckStake:     true,
		MinStake:       minStake,
	}
}

var (
	numericIDRe = regexp.MustCompile(`^\d+$`)
	addressRe   = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{50,60}$`)
	txHashRe    = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// validIdentifier checks the identifier syntax for this role. No ledger or
// store access; a rejection here never touches session state.
func (r RoleConfig) validIdentifier(input string) bool {
	switch r.Identifier {
	case IdentifierNumericID:
		return numericIDRe.MatchString(input)
	default:
		if !addressRe.MatchString(input) {
			return false
		}
		_, err := base58.Decode(input)
		return err == nil
	}
}

func (r RoleConfig) invalidIdentifierMsg() string {
	if r.Identifier == IdentifierNumericID {
		return "❌ Please enter a valid numeric validator ID."
	}
	return "❌ Please enter a valid Concordium account address."
}

func (r RoleConfig) promptIdentifier() string {
	if r.Identifier == IdentifierNumericID {
		return fmt.Sprintf("Please send your **validator ID** to begin verification (e.g. 12345).\n\nIf you entered the wrong ID, you can use the command `/%s` to restart.", r.RestartCommand)
	}
	return fmt.Sprintf("Please send your **account address** to begin verification.\nYou must delegate at least **%s CCD**.\n\nIf you entered the wrong address, you can use the command `/%s` to restart.", r.MinStake.String(), r.RestartCommand)
}

func (r RoleConfig) restartPrompt() string {
	if r.Identifier == IdentifierNumericID {
		return fmt.Sprintf("🔁 Verification has been restarted.\nPlease send your **validator ID** again (e.g. `12345`).\nIf you entered the wrong ID again, you can use `/%s` once more.", r.RestartCommand)
	}
	return fmt.Sprintf("🔁 Verification has been restarted.\nPlease send your **account address** again. You must delegate at least **%s CCD**.\n\nIf you entered the wrong address again, you can use `/%s` once more.", r.MinStake.String(), r.RestartCommand)
}

func (r RoleConfig) alreadyRegisteredMsg() string {
	if r.Identifier == IdentifierNumericID {
		return "❌ This validator address is already registered. Please check the ID or contact a moderator."
	}
	return fmt.Sprintf("❌ This address is already registered as a %s. Please check the address or contact a moderator.", r.RoleType)
}

// txInstruction tells the user what transaction proves ownership: sender
// pinned to the candidate address for validators, any wallet for delegators,
// with the candidate identifier as the memo in both cases.
func (r RoleConfig) txInstruction(sess *Session) string {
	if r.Identifier == IdentifierNumericID {
		return fmt.Sprintf("✅ Your validator address is: `%s`\n\nNow send a CCD transaction **from this address to any address**, using your **validator ID** (`%s`) as the MEMO. Then reply here with the transaction hash. Please note: transaction age must not exceed 1 hour.",
			sess.CandidateAddress, sess.CandidateIdentifier)
	}
	return fmt.Sprintf("✅ Great! Now send a CCD transaction **from your wallet to any address**, using the following as the **MEMO**:\n`%s`\n\nThen reply here with the **transaction hash**. Please note: transaction age must not exceed 1 hour.",
		sess.CandidateIdentifier)
}

func (r RoleConfig) senderMismatchMsg(sess *Session) string {
	return fmt.Sprintf("❌ Sender address must match the validator address: `%s`", sess.CandidateAddress)
}

func (r RoleConfig) memoMismatchMsg(sess *Session) string {
	if r.Identifier == IdentifierNumericID {
		return fmt.Sprintf("❌ The MEMO must exactly match your validator ID: `%s`", sess.CandidateIdentifier)
	}
	return fmt.Sprintf("❌ The MEMO must exactly match your delegator address: `%s`\nMake sure you included it exactly as-is when sending the transaction.", sess.CandidateIdentifier)
}

func (r RoleConfig) successMsg() string {
	return fmt.Sprintf("🎉 You have been successfully verified as a **%s** and your role has been assigned! You can now delete this thread.", r.RoleType)
}

// DeleteButtonID is the component ID of the "delete this thread" button
// offered after a successful verification.
func (r RoleConfig) DeleteButtonID() string {
	return "archive_thread_" + strings.ToLower(r.RoleType)
}
