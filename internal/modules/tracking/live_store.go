// README: Live positions of hikers currently recording, backed by Redis GEO.
package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trailtrack/internal/geo"
	"trailtrack/internal/types"
)

const (
	liveGeoKey       = "tracking:live"
	liveStatusPrefix = "tracking:live:%s"
)

// LivePosition is what other hikers see about an active recording.
type LivePosition struct {
	Owner          types.ID       `json:"owner"`
	Position       geo.Coordinate `json:"position"`
	DistanceMeters float64        `json:"distance_m"`
	Mode           Mode           `json:"mode"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NearbyHiker is a LivePosition with its distance from the query point.
type NearbyHiker struct {
	LivePosition
	AwayMeters float64 `json:"away_m"`
}

type LiveStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewLiveStore(redis *redis.Client, ttl time.Duration) *LiveStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &LiveStore{redis: redis, ttl: ttl}
}

func (s *LiveStore) Publish(ctx context.Context, p LivePosition) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	pipe := s.redis.Pipeline()
	pipe.GeoAdd(ctx, liveGeoKey, &redis.GeoLocation{
		Name:      string(p.Owner),
		Longitude: p.Position.Longitude,
		Latitude:  p.Position.Latitude,
	})
	pipe.Set(ctx, statusKey(p.Owner), payload, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *LiveStore) Remove(ctx context.Context, owner types.ID) error {
	pipe := s.redis.Pipeline()
	pipe.ZRem(ctx, liveGeoKey, string(owner))
	pipe.Del(ctx, statusKey(owner))
	_, err := pipe.Exec(ctx)
	return err
}

// Nearby lists live hikers within radiusKm of center, closest first. Members
// whose status key expired are skipped and pruned from the GEO set.
func (s *LiveStore) Nearby(ctx context.Context, center geo.Coordinate, radiusKm float64) ([]NearbyHiker, error) {
	locs, err := s.redis.GeoSearchLocation(ctx, liveGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Longitude,
			Latitude:   center.Latitude,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(locs))
	for i, l := range locs {
		keys[i] = statusKey(types.ID(l.Name))
	}
	vals, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var out []NearbyHiker
	var stale []interface{}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, locs[i].Name)
			continue
		}
		var p LivePosition
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decoding live position %s: %w", locs[i].Name, err)
		}
		out = append(out, NearbyHiker{LivePosition: p, AwayMeters: locs[i].Dist * 1000})
	}
	if len(stale) > 0 {
		_ = s.redis.ZRem(ctx, liveGeoKey, stale...).Err()
	}
	return out, nil
}

func statusKey(owner types.ID) string {
	return fmt.Sprintf(liveStatusPrefix, string(owner))
}
