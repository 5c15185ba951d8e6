package tracking

import (
	"context"
	"math"

	"github.com/redis/go-redis/v9"
)

const leaderboardKey = "running:leaderboard:distance_km"

// Leaderboard ranks users by total distance run. A nil Leaderboard is a
// no-op and ranks nobody.
type Leaderboard struct {
	client *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	if client == nil {
		return nil
	}
	return &Leaderboard{client: client}
}

func (b *Leaderboard) Add(ctx context.Context, userID string, distanceKm float64) error {
	if b == nil || userID == "" || distanceKm <= 0 {
		return nil
	}
	return b.client.ZIncrBy(ctx, leaderboardKey, distanceKm, userID).Err()
}

func (b *Leaderboard) Top(ctx context.Context, limit int64) ([]LeaderboardEntry, error) {
	entries := []LeaderboardEntry{}
	if b == nil || limit <= 0 {
		return entries, nil
	}
	zs, err := b.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	for i, z := range zs {
		member, _ := z.Member.(string)
		entries = append(entries, LeaderboardEntry{
			Rank:       i + 1,
			UserID:     member,
			DistanceKm: math.Round(z.Score*100) / 100,
		})
	}
	return entries, nil
}
