package data

import (
	"context"
	"errors"
	"time"

	"github.com/ccdcommunity/rolebot/src/types"
	"gorm.io/gorm"
)

// ErrDuplicate is returned by Insert when a database uniqueness constraint
// rejects the record.
var ErrDuplicate = errors.New("verification already recorded")

// VerificationStore persists completed verifications. Uniqueness is enforced
// by the database indexes, never by caller-side check-then-act: two sessions
// can pass the pre-checks with the same hash moments apart, and only one
// insert wins.
type VerificationStore struct {
	db *gorm.DB
}

func NewVerificationStore(db *gorm.DB) *VerificationStore {
	return &VerificationStore{db: db}
}

// WalletRegistered reports whether a wallet already claimed the given role.
func (s *VerificationStore) WalletRegistered(ctx context.Context, wallet, roleType string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&types.Verification{}).
		Where("wallet_address = ? AND role_type = ?", wallet, roleType).
		Count(&n).Error
	return n > 0, err
}

// TxHashUsed reports whether a transaction hash was already consumed by any
// verification, regardless of role.
func (s *VerificationStore) TxHashUsed(ctx context.Context, txHash string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&types.Verification{}).
		Where("tx_hash = ?", txHash).
		Count(&n).Error
	return n > 0, err
}

// GithubProfileUsed reports whether a GitHub profile already verified a
// Developer.
func (s *VerificationStore) GithubProfileUsed(ctx context.Context, profile string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&types.Verification{}).
		Where("github_profile = ? AND role_type = ?", profile, types.RoleDeveloper).
		Count(&n).Error
	return n > 0, err
}

// Insert writes one verification record. A uniqueness violation surfaces as
// ErrDuplicate so callers can treat a lost race as "already used".
func (s *VerificationStore) Insert(ctx context.Context, rec *types.Verification) error {
	if rec.VerifiedAt.IsZero() {
		rec.VerifiedAt = time.Now()
	}
	err := s.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}
