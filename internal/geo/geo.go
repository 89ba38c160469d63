package geo

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/example/mototaxi/internal/models"
)

// Point is one indexed entity: a driver's last position or a pending
// request's origin.
type Point struct {
	ID      string
	Loc     models.Coord
	Updated time.Time
}

// Index is the minimal proximity interface the sandbox needs for the
// "available near me" queries.
type Index interface {
	Upsert(p Point)
	Remove(id string)
	// Near returns up to limit points within radiusKm of at, closest first.
	Near(at models.Coord, radiusKm float64, limit int) []Point
}

// MemoryIndex is a naive scan over an in-process map. Fine at moto-taxi
// fleet sizes; swap in the Redis index for anything bigger.
type MemoryIndex struct {
	mu     sync.RWMutex
	points map[string]Point
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{points: make(map[string]Point)}
}

func (m *MemoryIndex) Upsert(p Point) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Updated = time.Now()
	m.points[p.ID] = p
}

func (m *MemoryIndex) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.points, id)
}

func (m *MemoryIndex) Near(at models.Coord, radiusKm float64, limit int) []Point {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type scored struct {
		p    Point
		dist float64
	}
	arr := make([]scored, 0, len(m.points))
	maxMeters := radiusKm * 1000
	for _, p := range m.points {
		d := Haversine(at.Lat, at.Lng, p.Loc.Lat, p.Loc.Lng)
		if maxMeters > 0 && d > maxMeters {
			continue
		}
		arr = append(arr, scored{p, d})
	}
	sort.Slice(arr, func(i, j int) bool { return arr[i].dist < arr[j].dist })
	if limit > 0 && len(arr) > limit {
		arr = arr[:limit]
	}
	out := make([]Point, 0, len(arr))
	for _, s := range arr {
		out = append(out, s.p)
	}
	return out
}

// Haversine distance in meters.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
