package ledger

import (
	"context"
	"time"
)

// Oracle pairs the client with the parsers so callers consume typed facts,
// never raw transcripts.
type Oracle struct {
	client *Client
}

func NewOracle(client *Client) *Oracle {
	return &Oracle{client: client}
}

// ValidatorAddress resolves a numeric validator ID to its account address.
// Returns found=false when the ID is not in the current baker set.
func (o *Oracle) ValidatorAddress(ctx context.Context, validatorID string) (string, bool, error) {
	out, err := o.client.ConsensusParameters(ctx)
	if err != nil {
		return "", false, err
	}
	addr, ok := FindValidatorAddress(out, validatorID)
	return addr, ok, nil
}

// StakingStatus looks up an account's delegation target and staked amount.
func (o *Oracle) StakingStatus(ctx context.Context, address string) (StakingStatus, error) {
	out, err := o.client.AccountInfo(ctx, address)
	if err != nil {
		return StakingStatus{}, err
	}
	return ParseStakingStatus(out), nil
}

// TransactionStatus looks up a transaction's finality, outcome, sender,
// memo and containing block.
func (o *Oracle) TransactionStatus(ctx context.Context, txHash string) (TransactionStatus, error) {
	out, err := o.client.TransactionStatus(ctx, txHash)
	if err != nil {
		return TransactionStatus{}, err
	}
	return ParseTransactionStatus(out), nil
}

// BlockTime resolves a block hash to its timestamp. Returns found=false
// when the output carried no parseable time.
func (o *Oracle) BlockTime(ctx context.Context, blockHash string) (time.Time, bool, error) {
	out, err := o.client.BlockInfo(ctx, blockHash)
	if err != nil {
		return time.Time{}, false, err
	}
	t, ok := ParseBlockTime(out)
	return t, ok, nil
}
