package tourstore

import (
	"context"
	"time"

	"backend-tourguide/internal/tour"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const toursCollection = "tours"

type tourDocument struct {
	UserID          string          `firestore:"userId"`
	UserName        string          `firestore:"userName"`
	MountainID      string          `firestore:"mountainId"`
	MountainName    string          `firestore:"mountainName"`
	Status          string          `firestore:"status"`
	Distance        float64         `firestore:"distance"`
	DurationSeconds int64           `firestore:"durationSeconds"`
	LastPosition    *positionFields `firestore:"lastPosition,omitempty"`
	StartedAt       time.Time       `firestore:"startTime"`
	EndedAt         *time.Time      `firestore:"endTime,omitempty"`
}

type positionFields struct {
	Latitude  float64   `firestore:"latitude"`
	Longitude float64   `firestore:"longitude"`
	Timestamp time.Time `firestore:"timestamp"`
}

// Firestore keeps tours as documents of the "tours" collection.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) (*Firestore, error) {
	if client == nil {
		return nil, errors.New("firestore tour store requires a client")
	}
	return &Firestore{client: client}, nil
}

func (s *Firestore) Create(ctx context.Context, in tour.NewSession) (string, time.Time, error) {
	startedAt := in.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	doc := tourDocument{
		UserID:       in.UserID,
		UserName:     in.UserName,
		MountainID:   in.MountainID,
		MountainName: in.MountainName,
		Status:       string(tour.StatusActive),
		StartedAt:    startedAt.UTC(),
	}
	ref, _, err := s.client.Collection(toursCollection).Add(ctx, doc)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "tours.create")
	}
	return ref.ID, startedAt, nil
}

func (s *Firestore) Update(ctx context.Context, id string, patch tour.Patch) error {
	updates := patchUpdates(patch)
	if len(updates) == 0 {
		return nil
	}
	ref := s.client.Collection(toursCollection).Doc(id)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return errors.Wrap(ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		current, err := snap.DataAt("status")
		if err == nil && current == string(tour.StatusCompleted) {
			return errors.Wrap(ErrCompleted, id)
		}
		return tx.Update(ref, updates)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCompleted) {
			return err
		}
		return errors.Wrap(err, "tours.update")
	}
	return nil
}

func (s *Firestore) List(ctx context.Context, q tour.Query) ([]tour.Session, error) {
	query := s.client.Collection(toursCollection).Query
	if q.Status != "" {
		query = query.Where("status", "==", string(q.Status))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	iter := query.OrderBy(orderField(q.OrderBy), firestore.Desc).Limit(limit).Documents(ctx)
	defer iter.Stop()

	sessions := []tour.Session{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "tours.list")
		}
		var doc tourDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, errors.Wrapf(err, "tours.decode %s", snap.Ref.ID)
		}
		sessions = append(sessions, doc.session(snap.Ref.ID))
	}
	return sessions, nil
}

func orderField(o tour.OrderBy) string {
	if o == tour.OrderByDistance {
		return "distance"
	}
	return "startTime"
}

func patchUpdates(patch tour.Patch) []firestore.Update {
	var updates []firestore.Update
	if patch.Status != nil {
		updates = append(updates, firestore.Update{Path: "status", Value: string(*patch.Status)})
	}
	if patch.DistanceMeters != nil {
		updates = append(updates, firestore.Update{Path: "distance", Value: *patch.DistanceMeters})
	}
	if patch.DurationSeconds != nil {
		updates = append(updates, firestore.Update{Path: "durationSeconds", Value: *patch.DurationSeconds})
	}
	if p := patch.LastPosition; p != nil {
		updates = append(updates, firestore.Update{Path: "lastPosition", Value: positionFields{
			Latitude:  p.Lat,
			Longitude: p.Lng,
			Timestamp: p.Timestamp.UTC(),
		}})
	}
	if patch.EndedAt != nil {
		updates = append(updates, firestore.Update{Path: "endTime", Value: patch.EndedAt.UTC()})
	}
	return updates
}

func (d tourDocument) session(id string) tour.Session {
	s := tour.Session{
		ID: id,
		Identity: tour.Identity{
			UserID:       d.UserID,
			UserName:     d.UserName,
			MountainID:   d.MountainID,
			MountainName: d.MountainName,
		},
		Status:          tour.Status(d.Status),
		DistanceMeters:  d.Distance,
		DurationSeconds: d.DurationSeconds,
		StartedAt:       d.StartedAt,
		EndedAt:         d.EndedAt,
	}
	if d.LastPosition != nil {
		s.LastKnownPosition = &tour.Position{
			Lat:       d.LastPosition.Latitude,
			Lng:       d.LastPosition.Longitude,
			Timestamp: d.LastPosition.Timestamp,
		}
	}
	return s
}
