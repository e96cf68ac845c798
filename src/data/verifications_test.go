package data

import (
	"context"
	"testing"
	"time"

	"github.com/ccdcommunity/rolebot/src/types"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testAddrA = "4ptvDVTsXZYE2fVB7LMK3PLvoVXoqGr3paQDQ3vp2S9GfyHWhZ"
	testAddrB = "3XSLuJcXg6xEua6iBPnWacc3iWh93yEDMCqX8FbE3RrSahbDDZ"
	testHashA = "7a90b3e2c41d5f88a6b0c73952de14fa0cb86e215d974f3a8e1c6029bd5a7f13"
	testHashB = "1f4e8c2a9d07b356e8a1f0c4d72b95368ec01a7f5b3d94802c6e1a59f7d3b082"
)

func newTestStore(t *testing.T) *VerificationStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.Verification{}))
	return NewVerificationStore(db)
}

func strptr(s string) *string { return &s }

func validatorRecord(hash, wallet, discordID string) *types.Verification {
	return &types.Verification{
		TxHash:        strptr(hash),
		WalletAddress: strptr(wallet),
		RoleType:      types.RoleValidator,
		DiscordID:     discordID,
	}
}

func TestInsertAndLookups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := validatorRecord(testHashA, testAddrA, "u1")
	require.NoError(t, store.Insert(ctx, rec))
	assert.NotZero(t, rec.ID)
	assert.False(t, rec.VerifiedAt.IsZero(), "VerifiedAt defaults to now")

	used, err := store.TxHashUsed(ctx, testHashA)
	require.NoError(t, err)
	assert.True(t, used)

	used, err = store.TxHashUsed(ctx, testHashB)
	require.NoError(t, err)
	assert.False(t, used)

	reg, err := store.WalletRegistered(ctx, testAddrA, types.RoleValidator)
	require.NoError(t, err)
	assert.True(t, reg)

	reg, err = store.WalletRegistered(ctx, testAddrA, types.RoleDelegator)
	require.NoError(t, err)
	assert.False(t, reg, "registration is per role")
}

func TestInsertPreservesVerifiedAt(t *testing.T) {
	store := newTestStore(t)
	at := time.Date(2025, 8, 31, 9, 0, 0, 0, time.UTC)

	rec := validatorRecord(testHashA, testAddrA, "u1")
	rec.VerifiedAt = at
	require.NoError(t, store.Insert(context.Background(), rec))
	assert.Equal(t, at, rec.VerifiedAt.UTC())
}

func TestDuplicateTxHashReturnsErrDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, validatorRecord(testHashA, testAddrA, "u1")))

	err := store.Insert(ctx, validatorRecord(testHashA, testAddrB, "u2"))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestDuplicateWalletRolePairReturnsErrDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, validatorRecord(testHashA, testAddrA, "u1")))

	err := store.Insert(ctx, validatorRecord(testHashB, testAddrA, "u2"))
	assert.ErrorIs(t, err, ErrDuplicate)

	// The same wallet may still claim a different role.
	other := &types.Verification{
		TxHash:        strptr(testHashB),
		WalletAddress: strptr(testAddrA),
		RoleType:      types.RoleDelegator,
		DiscordID:     "u1",
	}
	assert.NoError(t, store.Insert(ctx, other))
}

func TestDeveloperRecordsAllowMultipleNulls(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dev := func(profile, discordID string) *types.Verification {
		return &types.Verification{
			RoleType:      types.RoleDeveloper,
			DiscordID:     discordID,
			GithubProfile: strptr(profile),
		}
	}

	require.NoError(t, store.Insert(ctx, dev("https://github.com/alice", "u1")))
	require.NoError(t, store.Insert(ctx, dev("https://github.com/bob", "u2")),
		"NULL tx hash and wallet must not collide across developer rows")

	err := store.Insert(ctx, dev("https://github.com/alice", "u3"))
	assert.ErrorIs(t, err, ErrDuplicate, "a GitHub profile verifies only one account")

	used, err := store.GithubProfileUsed(ctx, "https://github.com/alice")
	require.NoError(t, err)
	assert.True(t, used)

	used, err = store.GithubProfileUsed(ctx, "https://github.com/carol")
	require.NoError(t, err)
	assert.False(t, used)
}
