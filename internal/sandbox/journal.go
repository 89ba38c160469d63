package sandbox

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/example/mototaxi/internal/models"
)

// Journal is a write-through persistence log for requests and trips. The
// in-memory maps stay authoritative; the journal survives restarts for
// audit and history.
type Journal interface {
	SaveRequest(r models.Request) error
	UpdateRequest(r models.Request) error
	SaveTrip(t models.Trip) error
	UpdateTrip(t models.Trip) error
}

type NopJournal struct{}

func (NopJournal) SaveRequest(models.Request) error   { return nil }
func (NopJournal) UpdateRequest(models.Request) error { return nil }
func (NopJournal) SaveTrip(models.Trip) error         { return nil }
func (NopJournal) UpdateTrip(models.Trip) error       { return nil }

type PostgresJournal struct {
	db *sql.DB
}

func NewPostgresJournal(dsn string) (*PostgresJournal, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresJournal{db: db}, nil
}

func (p *PostgresJournal) SaveRequest(r models.Request) error {
	_, err := p.db.Exec(`INSERT INTO requests(id, passenger_id, origin_lat, origin_lng, origin_address, dest_lat, dest_lng, dest_address, offered_price, payment_method, status, created_at, expires_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		r.ID, r.PassengerID, r.Origin.Coord.Lat, r.Origin.Coord.Lng, r.Origin.Address,
		r.Destination.Coord.Lat, r.Destination.Coord.Lng, r.Destination.Address,
		r.OfferedPrice, r.PaymentMethod, r.Status, r.CreatedAt, r.ExpiresAt)
	return err
}

func (p *PostgresJournal) UpdateRequest(r models.Request) error {
	_, err := p.db.Exec(`UPDATE requests SET status=$1 WHERE id=$2`, r.Status, r.ID)
	return err
}

func (p *PostgresJournal) SaveTrip(t models.Trip) error {
	driverID := ""
	if t.Driver != nil {
		driverID = t.Driver.ID
	}
	passengerID := ""
	if t.Passenger != nil {
		passengerID = t.Passenger.ID
	}
	_, err := p.db.Exec(`INSERT INTO trips(id, request_id, passenger_id, driver_id, agreed_price, payment_method, status, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.RequestID, passengerID, driverID, t.AgreedPrice, t.PaymentMethod, t.Status, t.CreatedAt)
	return err
}

func (p *PostgresJournal) UpdateTrip(t models.Trip) error {
	_, err := p.db.Exec(`UPDATE trips SET status=$1, final_price=$2 WHERE id=$3`, t.Status, t.FinalPrice, t.ID)
	return err
}
