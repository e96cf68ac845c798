package ledger

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Parsers over concordium-client text output. All of these are pure: they
// extract facts from one transcript and never touch the network. The
// matched vocabulary is concordium-client's output format; if that format
// changes, the fixtures in parser_test.go are the place it shows up.

var (
	stakedAmountRe = regexp.MustCompile(`Staked amount: ([\d.]+) CCD`)
	senderRe       = regexp.MustCompile(`from account '([^']+)'`)
	memoRe         = regexp.MustCompile(`Transfer memo:\n(.+)`)
	finalBlockRe   = regexp.MustCompile(`Transaction is finalized into block ([0-9a-fA-F]{64})`)
	blockTimeRe    = regexp.MustCompile(`Block time:\s*(.+)`)
)

var blockTimeLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05.999 MST",
	"2006-01-02 15:04:05 MST",
	time.RFC3339,
}

// StakingStatus holds the delegation facts read from `account show` output.
type StakingStatus struct {
	HasTarget    bool
	StakedAmount decimal.Decimal
}

// ParseStakingStatus extracts the delegation target marker and staked
// amount. A present target with no amount line counts as zero staked, which
// then fails the minimum-stake check rather than erroring.
func ParseStakingStatus(out string) StakingStatus {
	st := StakingStatus{StakedAmount: decimal.Zero}

	if strings.Contains(out, "Delegation target:") {
		st.HasTarget = true
	}

	if m := stakedAmountRe.FindStringSubmatch(out); m != nil {
		if amount, err := decimal.NewFromString(m[1]); err == nil {
			st.StakedAmount = amount
		}
	}

	return st
}

// TransactionStatus holds the facts read from `transaction status` output.
// Empty Sender/Memo/BlockHash means the field was absent from the output,
// which callers treat differently from a present-but-wrong value.
type TransactionStatus struct {
	Finalized  bool
	Successful bool
	Sender     string
	Memo       string
	BlockHash  string
}

// ParseTransactionStatus extracts finality, outcome, sender, memo and the
// containing block from `transaction status` output. The memo is trimmed of
// surrounding whitespace; comparisons against it are exact beyond that.
func ParseTransactionStatus(out string) TransactionStatus {
	ts := TransactionStatus{
		Finalized:  strings.Contains(out, "Transaction is finalized"),
		Successful: strings.Contains(out, `with status "success"`),
	}

	if m := senderRe.FindStringSubmatch(out); m != nil {
		ts.Sender = m[1]
	}
	if m := memoRe.FindStringSubmatch(out); m != nil {
		ts.Memo = strings.TrimSpace(m[1])
	}
	if m := finalBlockRe.FindStringSubmatch(out); m != nil {
		ts.BlockHash = m[1]
	}

	return ts
}

// ParseBlockTime extracts the block timestamp from `block show` output.
func ParseBlockTime(out string) (time.Time, bool) {
	m := blockTimeRe.FindStringSubmatch(out)
	if m == nil {
		return time.Time{}, false
	}

	raw := strings.TrimSpace(m[1])
	for _, layout := range blockTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// FindValidatorAddress scans the baker table of `consensus show-parameters`
// output for the row matching a numeric validator ID and returns its
// account address.
func FindValidatorAddress(out, validatorID string) (string, bool) {
	want := validatorID + ":"
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == want {
			return fields[1], true
		}
	}
	return "", false
}
