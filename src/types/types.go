package types

import "time"

// Role types stored in verification records.
const (
	RoleValidator = "Validator"
	RoleDelegator = "Delegator"
	RoleDeveloper = "Developer"
)

// Verification is one completed role verification. TxHash and WalletAddress
// are NULL for the Developer role, so the unique indexes only bind the
// transactional roles; developer uniqueness is carried by GithubProfile.
type Verification struct {
	ID            uint64  `gorm:"primaryKey;autoIncrement"`
	TxHash        *string `gorm:"size:64;uniqueIndex"`
	WalletAddress *string `gorm:"size:64;uniqueIndex:idx_wallet_role"`
	RoleType      string  `gorm:"size:16;not null;uniqueIndex:idx_wallet_role"`
	DiscordID     string  `gorm:"size:64;not null;index"`
	GithubProfile *string `gorm:"size:256;uniqueIndex"`
	VerifiedAt    time.Time
}

// Settings
type Setting struct {
	ID     uint8  `gorm:"primaryKey"`
	Name   string `gorm:"size:32;not null"`
	Value  string `gorm:"size:256;not null"`
	Active uint8  `gorm:"not null"`
}
