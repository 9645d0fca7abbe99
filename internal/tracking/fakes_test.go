package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"backend-tourguide/internal/mountain"
	"backend-tourguide/internal/tour"

	"github.com/pkg/errors"
)

var errRemote = errors.New("remote unavailable")

type memoryStore struct {
	mu        sync.Mutex
	createErr error
	updateErr error
	created   []tour.NewSession
	patches   []tour.Patch
	queries   []tour.Query
	listed    []tour.Session
}

func (s *memoryStore) Create(_ context.Context, in tour.NewSession) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", time.Time{}, s.createErr
	}
	s.created = append(s.created, in)
	return "tour-1", in.StartedAt, nil
}

func (s *memoryStore) Update(_ context.Context, _ string, patch tour.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.patches = append(s.patches, patch)
	return nil
}

func (s *memoryStore) List(_ context.Context, q tour.Query) ([]tour.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	return s.listed, nil
}

func (s *memoryStore) setCreateErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createErr = err
}

func (s *memoryStore) statuses() []tour.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tour.Status
	for _, p := range s.patches {
		if p.Status != nil {
			out = append(out, *p.Status)
		}
	}
	return out
}

type catalog map[string]mountain.Mountain

func (c catalog) GetBySlug(_ context.Context, slug string) (mountain.Mountain, error) {
	m, ok := c[slug]
	if !ok {
		return mountain.Mountain{}, mountain.ErrNotFound
	}
	return m, nil
}

var testCatalog = catalog{
	"rinjani": {ID: "m-1", Slug: "rinjani", Name: "Gunung Rinjani", CountrySlug: "indonesia", ElevationM: 3726},
}

var climber = tour.Identity{UserID: "user-1", UserName: "Ayu"}

func grantedRequest(at time.Time) OpenRequest {
	return OpenRequest{
		Camera:   tour.PermissionGranted,
		Location: &SampleRequest{Lat: -8.41, Lng: 116.45, Timestamp: at},
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
