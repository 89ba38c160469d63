package geo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/mototaxi/internal/models"
)

// RedisIndex implements Index on Redis GEO commands so several sandbox
// instances can share one view of drivers and open requests.
type RedisIndex struct {
	client *redis.Client
	key    string
}

func NewRedisIndex(addr, password, key string) *RedisIndex {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisIndex{client: c, key: key}
}

func (r *RedisIndex) Upsert(p Point) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _ = r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{
		Longitude: p.Loc.Lng,
		Latitude:  p.Loc.Lat,
		Name:      p.ID,
	}).Result()
}

func (r *RedisIndex) Remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = r.client.ZRem(ctx, r.key, id).Err()
}

func (r *RedisIndex) Near(at models.Coord, radiusKm float64, limit int) []Point {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := r.client.GeoRadius(ctx, r.key, at.Lng, at.Lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Count:     limit,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil
	}
	out := make([]Point, 0, len(res))
	for _, g := range res {
		out = append(out, Point{
			ID:  g.Name,
			Loc: models.Coord{Lat: g.Latitude, Lng: g.Longitude},
		})
	}
	return out
}
