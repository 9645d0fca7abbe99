package mountain

import (
	"context"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const mountainsCollection = "mountains"

// mountainDocument is keyed by slug, so slugs stay unique without an index.
type mountainDocument struct {
	ID          string    `firestore:"id"`
	Name        string    `firestore:"name"`
	NameEn      string    `firestore:"nameEn"`
	CountrySlug string    `firestore:"countrySlug"`
	Elevation   int       `firestore:"elevation"`
	Description string    `firestore:"description"`
	CreatedAt   time.Time `firestore:"createdAt"`
}

// Firestore serves the catalog from the "mountains" collection.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) (*Firestore, error) {
	if client == nil {
		return nil, errors.New("firestore mountain catalog requires a client")
	}
	return &Firestore{client: client}, nil
}

func (f *Firestore) Create(ctx context.Context, input Mountain) (Mountain, error) {
	input.ID = uuid.NewString()
	if input.Slug == "" {
		input.Slug = Slugify(input.Name)
	}
	if input.Slug == "" {
		return Mountain{}, errors.New("mountain slug is empty")
	}
	input.CreatedAt = time.Now().UTC()

	_, err := f.client.Collection(mountainsCollection).Doc(input.Slug).Create(ctx, toDocument(input))
	if status.Code(err) == codes.AlreadyExists {
		return Mountain{}, errors.Wrap(ErrSlugTaken, input.Slug)
	}
	if err != nil {
		return Mountain{}, errors.Wrap(err, "mountains.create")
	}
	return input, nil
}

func (f *Firestore) GetBySlug(ctx context.Context, slug string) (Mountain, error) {
	if strings.TrimSpace(slug) == "" {
		return Mountain{}, ErrNotFound
	}
	snap, err := f.client.Collection(mountainsCollection).Doc(slug).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Mountain{}, ErrNotFound
	}
	if err != nil {
		return Mountain{}, errors.Wrap(err, "mountains.get")
	}
	var doc mountainDocument
	if err := snap.DataTo(&doc); err != nil {
		return Mountain{}, errors.Wrapf(err, "mountains.decode %s", slug)
	}
	return doc.mountain(snap.Ref.ID), nil
}

// List filters by country in the query and orders in memory, matching the
// Postgres ordering without a composite index.
func (f *Firestore) List(ctx context.Context, countrySlug string) ([]Mountain, error) {
	query := f.client.Collection(mountainsCollection).Query
	if countrySlug != "" {
		query = query.Where("countrySlug", "==", countrySlug)
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	mountains := []Mountain{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "mountains.list")
		}
		var doc mountainDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, errors.Wrapf(err, "mountains.decode %s", snap.Ref.ID)
		}
		mountains = append(mountains, doc.mountain(snap.Ref.ID))
	}
	sortCatalog(mountains)
	return mountains, nil
}

func sortCatalog(mountains []Mountain) {
	slices.SortStableFunc(mountains, func(a, b Mountain) int {
		if a.ElevationM != b.ElevationM {
			return b.ElevationM - a.ElevationM
		}
		return strings.Compare(a.Name, b.Name)
	})
}

func toDocument(m Mountain) mountainDocument {
	return mountainDocument{
		ID:          m.ID,
		Name:        m.Name,
		NameEn:      m.NameEn,
		CountrySlug: m.CountrySlug,
		Elevation:   m.ElevationM,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

func (d mountainDocument) mountain(slug string) Mountain {
	return Mountain{
		ID:          d.ID,
		Slug:        slug,
		Name:        d.Name,
		NameEn:      d.NameEn,
		CountrySlug: d.CountrySlug,
		ElevationM:  d.Elevation,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
	}
}
