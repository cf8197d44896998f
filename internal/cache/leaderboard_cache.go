package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// LeaderboardCache handles Redis ZSET operations for per-battle standings
type LeaderboardCache interface {
	UpdateScore(ctx context.Context, battleCode, email string, score int) error
	GetTop(ctx context.Context, battleCode string, limit int) ([]LeaderboardEntry, error)
	GetRank(ctx context.Context, battleCode, email string) (int64, error)
	Delete(ctx context.Context, battleCode string) error
}

// LeaderboardEntry represents a single leaderboard entry
type LeaderboardEntry struct {
	Email string `json:"email"`
	Score int    `json:"score"`
	Rank  int    `json:"rank"`
}

type leaderboardCache struct {
	client *redis.Client
}

// NewLeaderboardCache creates a new leaderboard cache
func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{
		client: client,
	}
}

func (c *leaderboardCache) key(battleCode string) string {
	return fmt.Sprintf("battle:%s:lb", battleCode)
}

func (c *leaderboardCache) UpdateScore(ctx context.Context, battleCode, email string, score int) error {
	return c.client.ZAdd(ctx, c.key(battleCode), redis.Z{
		Score:  float64(score),
		Member: email,
	}).Err()
}

func (c *leaderboardCache) GetTop(ctx context.Context, battleCode string, limit int) ([]LeaderboardEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(battleCode), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(results))
	for i, z := range results {
		entries[i] = LeaderboardEntry{
			Email: z.Member.(string),
			Score: int(z.Score),
			Rank:  i + 1,
		}
	}
	return entries, nil
}

func (c *leaderboardCache) GetRank(ctx context.Context, battleCode, email string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, c.key(battleCode), email).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}

func (c *leaderboardCache) Delete(ctx context.Context, battleCode string) error {
	return c.client.Del(ctx, c.key(battleCode)).Err()
}
