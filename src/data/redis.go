package data

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const oauthStatePrefix = "rolebot:oauth:"

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// SaveOAuthState binds an OAuth state token to a Discord user for the
// developer flow. The token expires on its own if never redeemed.
func SaveOAuthState(ctx context.Context, rdb *redis.Client, state, discordID string, ttl time.Duration) error {
	return rdb.Set(ctx, oauthStatePrefix+state, discordID, ttl).Err()
}

// TakeOAuthState redeems a state token exactly once. Returns the bound
// Discord ID, or ok=false when the token is unknown or already used.
func TakeOAuthState(ctx context.Context, rdb *redis.Client, state string) (string, bool, error) {
	discordID, err := rdb.GetDel(ctx, oauthStatePrefix+state).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return discordID, true, nil
}
