//go:build integration

package mountain

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-tourguide/internal/db/firestoretest"
)

func TestFirestoreCatalogIntegration(t *testing.T) {
	client, _ := firestoretest.Start(t, "mountain-test")
	catalog, err := NewFirestore(client)
	if err != nil {
		t.Fatalf("new firestore catalog: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	seed := []Mountain{
		{Name: "Semeru", CountrySlug: "indonesia", ElevationM: 3676},
		{Name: "Rinjani", NameEn: "Mount Rinjani", CountrySlug: "indonesia", ElevationM: 3726},
		{Name: "Shahdag", CountrySlug: "azerbaijan", ElevationM: 4243},
	}
	for _, m := range seed {
		created, err := catalog.Create(ctx, m)
		if err != nil {
			t.Fatalf("create %s: %v", m.Name, err)
		}
		if created.ID == "" || created.Slug != Slugify(m.Name) || created.CreatedAt.IsZero() {
			t.Fatalf("unexpected created mountain %+v", created)
		}
	}

	if _, err := catalog.Create(ctx, Mountain{Name: "Semeru", CountrySlug: "indonesia"}); !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected slug taken, got %v", err)
	}

	m, err := catalog.GetBySlug(ctx, "rinjani")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m.Slug != "rinjani" || m.ElevationM != 3726 || m.DisplayName() != "Mount Rinjani" {
		t.Fatalf("unexpected mountain %+v", m)
	}
	if _, err := catalog.GetBySlug(ctx, "everest"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	all, err := catalog.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Slug != "shahdag" || all[2].Slug != "semeru" {
		t.Fatalf("expected catalog ordered by elevation, got %+v", all)
	}

	indonesia, err := catalog.List(ctx, "indonesia")
	if err != nil {
		t.Fatalf("list by country: %v", err)
	}
	if len(indonesia) != 2 || indonesia[0].Slug != "rinjani" || indonesia[1].Slug != "semeru" {
		t.Fatalf("unexpected country listing %+v", indonesia)
	}
}
