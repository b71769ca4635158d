// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package fleet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusbus/extrabus/clock"
	"github.com/campusbus/extrabus/db"
	"github.com/campusbus/extrabus/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrInvalid   = errors.New("invalid fleet data")
	ErrDuplicate = errors.New("already exists")
)

type Store struct {
	db    *sql.DB
	clock clock.Clock
}

func NewStore(conn *sql.DB, c clock.Clock) *Store {
	return &Store{db: conn, clock: clock.Resolve(c)}
}

// Routes

func (s *Store) CreateRoute(ctx context.Context, req models.CreateRouteRequest) (models.Route, error) {
	r := models.Route{
		ID:         db.NewID(),
		Name:       strings.TrimSpace(req.Name),
		Region:     strings.TrimSpace(req.Region),
		StartPoint: strings.TrimSpace(req.StartPoint),
		EndPoint:   strings.TrimSpace(req.EndPoint),
		CreatedAt:  s.clock.Now(),
	}
	if r.Name == "" || r.Region == "" || r.StartPoint == "" || r.EndPoint == "" {
		return models.Route{}, fmt.Errorf("%w: name, region, start_point and end_point are required", ErrInvalid)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO routes (id, name, region, start_point, end_point, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.Name, r.Region, r.StartPoint, r.EndPoint, db.ToMillis(r.CreatedAt))
	if err != nil {
		return models.Route{}, fmt.Errorf("insert route: %w", err)
	}
	return r, nil
}

func (s *Store) GetRoute(ctx context.Context, id string) (models.Route, error) {
	var r models.Route
	var created int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, region, start_point, end_point, created_at FROM routes WHERE id = $1
	`, id).Scan(&r.ID, &r.Name, &r.Region, &r.StartPoint, &r.EndPoint, &created)
	if err == sql.ErrNoRows {
		return models.Route{}, ErrNotFound
	}
	if err != nil {
		return models.Route{}, fmt.Errorf("query route: %w", err)
	}
	r.CreatedAt = db.FromMillis(created)
	return r, nil
}

// ListRoutes returns routes ordered by name, optionally limited to region.
func (s *Store) ListRoutes(ctx context.Context, region string) ([]models.Route, error) {
	query := `SELECT id, name, region, start_point, end_point, created_at FROM routes`
	var args []any
	if region != "" {
		query += ` WHERE region = $1`
		args = append(args, region)
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()

	routes := []models.Route{}
	for rows.Next() {
		var r models.Route
		var created int64
		if err := rows.Scan(&r.ID, &r.Name, &r.Region, &r.StartPoint, &r.EndPoint, &created); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		r.CreatedAt = db.FromMillis(created)
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

// DeleteRoute removes a route with its stops and schedules.
func (s *Store) DeleteRoute(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "routes", id)
}

func (s *Store) AddStop(ctx context.Context, routeID string, req models.AddStopRequest) (models.RouteStop, error) {
	if _, err := s.GetRoute(ctx, routeID); err != nil {
		return models.RouteStop{}, err
	}
	stop := models.RouteStop{
		ID:        db.NewID(),
		RouteID:   routeID,
		Name:      strings.TrimSpace(req.Name),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		StopOrder: req.StopOrder,
	}
	if stop.Name == "" || stop.StopOrder < 0 {
		return models.RouteStop{}, fmt.Errorf("%w: stop needs a name and a non-negative order", ErrInvalid)
	}
	if stop.Latitude < -90 || stop.Latitude > 90 || stop.Longitude < -180 || stop.Longitude > 180 {
		return models.RouteStop{}, fmt.Errorf("%w: coordinates out of range", ErrInvalid)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO route_stops (id, route_id, name, latitude, longitude, stop_order)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, stop.ID, stop.RouteID, stop.Name, stop.Latitude, stop.Longitude, stop.StopOrder)
	if db.IsUniqueViolation(err) {
		return models.RouteStop{}, fmt.Errorf("%w: stop order %d", ErrDuplicate, stop.StopOrder)
	}
	if err != nil {
		return models.RouteStop{}, fmt.Errorf("insert stop: %w", err)
	}
	return stop, nil
}

func (s *Store) Stops(ctx context.Context, routeID string) ([]models.RouteStop, error) {
	if _, err := s.GetRoute(ctx, routeID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, route_id, name, latitude, longitude, stop_order
		FROM route_stops WHERE route_id = $1 ORDER BY stop_order
	`, routeID)
	if err != nil {
		return nil, fmt.Errorf("query stops: %w", err)
	}
	defer rows.Close()

	stops := []models.RouteStop{}
	for rows.Next() {
		var st models.RouteStop
		if err := rows.Scan(&st.ID, &st.RouteID, &st.Name, &st.Latitude, &st.Longitude, &st.StopOrder); err != nil {
			return nil, fmt.Errorf("scan stop: %w", err)
		}
		stops = append(stops, st)
	}
	return stops, rows.Err()
}

// Buses

func (s *Store) CreateBus(ctx context.Context, req models.CreateBusRequest) (models.Bus, error) {
	b := models.Bus{
		ID:          db.NewID(),
		PlateNumber: strings.ToUpper(strings.TrimSpace(req.PlateNumber)),
		Capacity:    req.Capacity,
		RouteID:     req.RouteID,
		DriverID:    req.DriverID,
		CreatedAt:   s.clock.Now(),
	}
	if b.PlateNumber == "" || b.Capacity <= 0 {
		return models.Bus{}, fmt.Errorf("%w: plate_number and a positive capacity are required", ErrInvalid)
	}
	if b.RouteID != nil {
		if _, err := s.GetRoute(ctx, *b.RouteID); err != nil {
			return models.Bus{}, err
		}
	}
	if b.DriverID != nil {
		var role string
		err := s.db.QueryRowContext(ctx, `SELECT role FROM profiles WHERE id = $1`, *b.DriverID).Scan(&role)
		if err == sql.ErrNoRows || (err == nil && role != models.RoleDriver) {
			return models.Bus{}, fmt.Errorf("%w: driver_id must reference a driver", ErrInvalid)
		}
		if err != nil {
			return models.Bus{}, fmt.Errorf("query driver: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO buses (id, plate_number, capacity, route_id, driver_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, b.ID, b.PlateNumber, b.Capacity, b.RouteID, b.DriverID, db.ToMillis(b.CreatedAt))
	if db.IsUniqueViolation(err) {
		return models.Bus{}, fmt.Errorf("%w: plate %s", ErrDuplicate, b.PlateNumber)
	}
	if err != nil {
		return models.Bus{}, fmt.Errorf("insert bus: %w", err)
	}
	return b, nil
}

func (s *Store) ListBuses(ctx context.Context) ([]models.Bus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plate_number, capacity, route_id, driver_id, created_at
		FROM buses ORDER BY plate_number
	`)
	if err != nil {
		return nil, fmt.Errorf("query buses: %w", err)
	}
	defer rows.Close()

	buses := []models.Bus{}
	for rows.Next() {
		var b models.Bus
		var routeID, driverID sql.NullString
		var created int64
		if err := rows.Scan(&b.ID, &b.PlateNumber, &b.Capacity, &routeID, &driverID, &created); err != nil {
			return nil, fmt.Errorf("scan bus: %w", err)
		}
		b.RouteID = db.FromNullString(routeID)
		b.DriverID = db.FromNullString(driverID)
		b.CreatedAt = db.FromMillis(created)
		buses = append(buses, b)
	}
	return buses, rows.Err()
}

func (s *Store) DeleteBus(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "buses", id)
}

// Schedules

func (s *Store) CreateSchedule(ctx context.Context, req models.CreateScheduleRequest) (models.Schedule, error) {
	if _, err := time.Parse("15:04", req.DepartureTime); err != nil {
		return models.Schedule{}, fmt.Errorf("%w: departure_time must be HH:MM", ErrInvalid)
	}
	if req.DayOfWeek < 0 || req.DayOfWeek > 6 {
		return models.Schedule{}, fmt.Errorf("%w: day_of_week must be 0-6", ErrInvalid)
	}
	if _, err := s.GetRoute(ctx, req.RouteID); err != nil {
		return models.Schedule{}, err
	}
	if req.BusID != nil {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM buses WHERE id = $1`, *req.BusID).Scan(&n); err != nil {
			return models.Schedule{}, fmt.Errorf("query bus: %w", err)
		}
		if n == 0 {
			return models.Schedule{}, fmt.Errorf("%w: unknown bus_id", ErrInvalid)
		}
	}

	sch := models.Schedule{
		ID:            db.NewID(),
		RouteID:       req.RouteID,
		BusID:         req.BusID,
		DepartureTime: req.DepartureTime,
		DayOfWeek:     req.DayOfWeek,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules (id, route_id, bus_id, departure_time, day_of_week)
		VALUES ($1, $2, $3, $4, $5)
	`, sch.ID, sch.RouteID, sch.BusID, sch.DepartureTime, sch.DayOfWeek)
	if err != nil {
		return models.Schedule{}, fmt.Errorf("insert schedule: %w", err)
	}
	return sch, nil
}

// ListSchedules returns schedules by day and time, optionally for one route.
func (s *Store) ListSchedules(ctx context.Context, routeID string) ([]models.Schedule, error) {
	query := `SELECT id, route_id, bus_id, departure_time, day_of_week FROM schedules`
	var args []any
	if routeID != "" {
		query += ` WHERE route_id = $1`
		args = append(args, routeID)
	}
	query += ` ORDER BY day_of_week, departure_time, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	schedules := []models.Schedule{}
	for rows.Next() {
		var sch models.Schedule
		var busID sql.NullString
		if err := rows.Scan(&sch.ID, &sch.RouteID, &busID, &sch.DepartureTime, &sch.DayOfWeek); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		sch.BusID = db.FromNullString(busID)
		schedules = append(schedules, sch)
	}
	return schedules, rows.Err()
}

// deleteByID deletes one row from a fixed table name.
func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
