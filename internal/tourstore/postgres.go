package tourstore

import (
	"context"
	"time"

	"backend-tourguide/internal/db"
	"backend-tourguide/internal/tour"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

var (
	ErrNotFound    = errors.New("tour not found")
	ErrCompleted   = errors.New("tour already completed")
	ErrUnavailable = errors.New("tour store unavailable")
)

const defaultListLimit = 50

type Postgres struct {
	db db.Querier
}

func NewPostgres(db db.Querier) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, in tour.NewSession) (string, time.Time, error) {
	if s.db == nil {
		return "", time.Time{}, ErrUnavailable
	}
	id := uuid.NewString()
	startedAt := in.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO tours (id, user_id, user_name, mountain_id, mountain_name, status, distance_m, duration_s, started_at)
		VALUES ($1,$2,$3,$4,$5,$6,0,0,$7)
		RETURNING started_at
	`, id, in.UserID, in.UserName, in.MountainID, in.MountainName, string(tour.StatusActive), startedAt)
	if err := row.Scan(&startedAt); err != nil {
		return "", time.Time{}, errors.Wrap(err, "insert tour")
	}
	return id, startedAt, nil
}

// Update applies the non-nil fields of patch. Completed tours are never
// modified, which also discards progress pushes that arrive after the end.
func (s *Postgres) Update(ctx context.Context, id string, patch tour.Patch) error {
	if s.db == nil {
		return ErrUnavailable
	}
	var status *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}
	var lat, lng *float64
	var recordedAt *time.Time
	if p := patch.LastPosition; p != nil {
		lat, lng, recordedAt = &p.Lat, &p.Lng, &p.Timestamp
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE tours
		SET status = COALESCE($2, status),
		    distance_m = COALESCE($3, distance_m),
		    duration_s = COALESCE($4, duration_s),
		    last_lat = COALESCE($5, last_lat),
		    last_lng = COALESCE($6, last_lng),
		    last_recorded_at = COALESCE($7, last_recorded_at),
		    ended_at = COALESCE($8, ended_at),
		    updated_at = now()
		WHERE id=$1 AND status <> 'completed'
	`, id, status, patch.DistanceMeters, patch.DurationSeconds, lat, lng, recordedAt, patch.EndedAt)
	if err != nil {
		return errors.Wrap(err, "update tour")
	}
	if tag.RowsAffected() == 0 {
		return s.missingReason(ctx, id)
	}
	return nil
}

func (s *Postgres) missingReason(ctx context.Context, id string) error {
	var status string
	err := s.db.QueryRow(ctx, `SELECT status FROM tours WHERE id=$1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Wrap(ErrNotFound, id)
	}
	if err != nil {
		return errors.Wrap(err, "lookup tour")
	}
	return errors.Wrap(ErrCompleted, id)
}

func (s *Postgres) List(ctx context.Context, q tour.Query) ([]tour.Session, error) {
	if s.db == nil {
		return nil, ErrUnavailable
	}
	order := "started_at DESC"
	if q.OrderBy == tour.OrderByDistance {
		order = "distance_m DESC, ended_at ASC"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, user_name, mountain_id, mountain_name, status, distance_m, duration_s,
		       last_lat, last_lng, last_recorded_at, started_at, ended_at
		FROM tours
		WHERE ($1 = '' OR status = $1)
		ORDER BY `+order+`
		LIMIT $2
	`, string(q.Status), limit)
	if err != nil {
		return nil, errors.Wrap(err, "list tours")
	}
	defer rows.Close()

	sessions := []tour.Session{}
	for rows.Next() {
		var (
			s          tour.Session
			status     string
			lat, lng   *float64
			recordedAt *time.Time
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.UserName, &s.MountainID, &s.MountainName, &status,
			&s.DistanceMeters, &s.DurationSeconds, &lat, &lng, &recordedAt, &s.StartedAt, &s.EndedAt); err != nil {
			return nil, errors.Wrap(err, "scan tour")
		}
		s.Status = tour.Status(status)
		if lat != nil && lng != nil {
			p := tour.Position{Lat: *lat, Lng: *lng}
			if recordedAt != nil {
				p.Timestamp = *recordedAt
			}
			s.LastKnownPosition = &p
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
