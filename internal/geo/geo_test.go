package geo

import (
	"testing"

	"github.com/example/mototaxi/internal/models"
)

func TestHaversineZero(t *testing.T) {
	d := Haversine(0, 0, 0, 0)
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestMemoryIndexNearOrdersAndFilters(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Upsert(Point{ID: "close", Loc: models.Coord{Lat: 0.001, Lng: 0}})
	idx.Upsert(Point{ID: "closer", Loc: models.Coord{Lat: 0.0005, Lng: 0}})
	idx.Upsert(Point{ID: "far", Loc: models.Coord{Lat: 1, Lng: 1}}) // ~150km away

	got := idx.Near(models.Coord{Lat: 0, Lng: 0}, 5, 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 points within 5km, got %d", len(got))
	}
	if got[0].ID != "closer" || got[1].ID != "close" {
		t.Fatalf("wrong order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestMemoryIndexRemove(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Upsert(Point{ID: "a", Loc: models.Coord{Lat: 0, Lng: 0}})
	idx.Remove("a")
	if got := idx.Near(models.Coord{Lat: 0, Lng: 0}, 5, 10); len(got) != 0 {
		t.Fatalf("expected empty index, got %d", len(got))
	}
}
