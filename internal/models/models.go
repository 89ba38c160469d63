package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is a coordinate plus the human-readable address the user saw.
type Place struct {
	Coord   Coord  `json:"coord"`
	Address string `json:"address"`
}

type Role string

const (
	RolePassenger Role = "passenger"
	RoleDriver    Role = "driver"
)

type PaymentMethod string

const (
	PayCash     PaymentMethod = "cash"
	PayCard     PaymentMethod = "card"
	PayTransfer PaymentMethod = "transfer"
)

// RequestStatus is the lifecycle of a ride request before a trip exists.
// Once it leaves pending it never returns.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestCancelled RequestStatus = "cancelled"
	RequestExpired   RequestStatus = "expired"
)

func (s RequestStatus) Terminal() bool {
	return s == RequestCancelled || s == RequestExpired
}

// TripStatus is the ordered fulfillment progression. The only move that is
// not one step forward is the cancelled escape from any non-terminal status.
type TripStatus string

const (
	TripAccepted  TripStatus = "accepted"
	TripEnRoute   TripStatus = "en_route_to_origin"
	TripArrived   TripStatus = "arrived_at_origin"
	TripOngoing   TripStatus = "in_progress"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

var tripRank = map[TripStatus]int{
	TripAccepted:  0,
	TripEnRoute:   1,
	TripArrived:   2,
	TripOngoing:   3,
	TripCompleted: 4,
}

func (s TripStatus) Terminal() bool {
	return s == TripCompleted || s == TripCancelled
}

// Next returns the forward transition from s, if one exists.
func (s TripStatus) Next() (TripStatus, bool) {
	switch s {
	case TripAccepted:
		return TripEnRoute, true
	case TripEnRoute:
		return TripArrived, true
	case TripArrived:
		return TripOngoing, true
	case TripOngoing:
		return TripCompleted, true
	}
	return "", false
}

// CanAdvanceTo reports whether from→to is a legal transition: exactly one
// step forward, or cancellation of a trip that has not already ended.
func (from TripStatus) CanAdvanceTo(to TripStatus) bool {
	if to == TripCancelled {
		return !from.Terminal()
	}
	fr, ok1 := tripRank[from]
	tr, ok2 := tripRank[to]
	return ok1 && ok2 && tr == fr+1
}

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	IsDriver  bool   `json:"is_driver"`
}

// DriverSummary is the assigned-driver card shown to a passenger while
// waiting: enough to recognize the driver, nothing more.
type DriverSummary struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
	Plate  string  `json:"plate"`
	Phone  string  `json:"phone,omitempty"`
}

type Request struct {
	ID            string        `json:"id"`
	PassengerID   string        `json:"passenger_id"`
	Origin        Place         `json:"origin"`
	Destination   Place         `json:"destination"`
	OfferedPrice  float64       `json:"offered_price"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CreatedAt     time.Time     `json:"created_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
	Status        RequestStatus `json:"status"`
}

// RequestSnapshot is one poll result for a request. Driver, ETA and TripID
// are only populated once the request is accepted; TripID may lag the
// accepted status by a poll cycle while the backend sets the trip up.
type RequestSnapshot struct {
	RequestID  string         `json:"request_id"`
	Status     RequestStatus  `json:"status"`
	Driver     *DriverSummary `json:"driver,omitempty"`
	ETAMinutes int            `json:"eta_minutes,omitempty"`
	TripID     string         `json:"trip_id,omitempty"`
	Version    int64          `json:"version"`
}

func (s RequestSnapshot) StateVersion() int64 { return s.Version }

type Trip struct {
	ID            string         `json:"id"`
	RequestID     string         `json:"request_id,omitempty"`
	Origin        Place          `json:"origin"`
	Destination   Place          `json:"destination"`
	Driver        *DriverSummary `json:"driver,omitempty"`
	Passenger     *User          `json:"passenger,omitempty"`
	AgreedPrice   float64        `json:"agreed_price"`
	FinalPrice    *float64       `json:"final_price,omitempty"`
	PaymentMethod PaymentMethod  `json:"payment_method"`
	Status        TripStatus     `json:"status"`
	DriverLoc     *Coord         `json:"driver_loc,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	Version       int64          `json:"version"`
}

func (t Trip) StateVersion() int64 { return t.Version }

type AvailabilityState string

const (
	DriverAvailable   AvailabilityState = "available"
	DriverUnavailable AvailabilityState = "unavailable"
)

// Availability is a driver's dispatch status plus last known position.
type Availability struct {
	State   AvailabilityState `json:"state"`
	Loc     Coord             `json:"loc"`
	Updated time.Time         `json:"updated"`
}

type Moto struct {
	ID    string `json:"id"`
	Plate string `json:"plate"`
	Brand string `json:"brand"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	Color string `json:"color,omitempty"`
}

type Rating struct {
	ID        string    `json:"id"`
	TripID    string    `json:"trip_id"`
	RaterID   string    `json:"rater_id"`
	RatedID   string    `json:"rated_id"`
	Score     int       `json:"score"` // 1..5
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Route is the routing-provider answer for drawing and ETA display.
type Route struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes float64 `json:"duration_minutes"`
	Polyline        string  `json:"polyline,omitempty"`
}

// Suggestion is one autocomplete candidate from the geocoding provider.
type Suggestion struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Coord       Coord  `json:"coord"`
}
