package mountain

import (
	"context"
	"regexp"
	"strings"

	"backend-tourguide/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

var (
	ErrNotFound    = errors.New("mountain not found")
	ErrSlugTaken   = errors.New("mountain slug already exists")
	ErrUnavailable = errors.New("mountain catalog unavailable")
)

const uniqueViolation = "23505"

// Catalog is the mountain lookup shared by the HTTP routes and tour
// attempts. Service backs it with Postgres, Firestore with documents.
type Catalog interface {
	Create(ctx context.Context, input Mountain) (Mountain, error)
	GetBySlug(ctx context.Context, slug string) (Mountain, error)
	List(ctx context.Context, countrySlug string) ([]Mountain, error)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) Create(ctx context.Context, input Mountain) (Mountain, error) {
	if s.db == nil {
		return Mountain{}, ErrUnavailable
	}
	input.ID = uuid.NewString()
	if input.Slug == "" {
		input.Slug = Slugify(input.Name)
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO mountains (id, slug, name, name_en, country_slug, elevation_m, description)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, input.ID, input.Slug, input.Name, input.NameEn, input.CountrySlug, input.ElevationM, input.Description)
	if err := row.Scan(&input.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Mountain{}, errors.Wrap(ErrSlugTaken, input.Slug)
		}
		return Mountain{}, errors.Wrap(err, "insert mountain")
	}
	return input, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (Mountain, error) {
	if s.db == nil {
		return Mountain{}, ErrUnavailable
	}
	row := s.db.QueryRow(ctx, `
		SELECT id, slug, name, name_en, country_slug, elevation_m, description, created_at
		FROM mountains WHERE slug=$1
	`, slug)
	var m Mountain
	if err := row.Scan(&m.ID, &m.Slug, &m.Name, &m.NameEn, &m.CountrySlug, &m.ElevationM, &m.Description, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Mountain{}, ErrNotFound
		}
		return Mountain{}, errors.Wrap(err, "get mountain")
	}
	return m, nil
}

// List returns the catalog, optionally narrowed to one country.
func (s *Service) List(ctx context.Context, countrySlug string) ([]Mountain, error) {
	if s.db == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, slug, name, name_en, country_slug, elevation_m, description, created_at
		FROM mountains
		WHERE ($1 = '' OR country_slug = $1)
		ORDER BY elevation_m DESC, name
	`, countrySlug)
	if err != nil {
		return nil, errors.Wrap(err, "list mountains")
	}
	defer rows.Close()

	mountains := []Mountain{}
	for rows.Next() {
		var m Mountain
		if err := rows.Scan(&m.ID, &m.Slug, &m.Name, &m.NameEn, &m.CountrySlug, &m.ElevationM, &m.Description, &m.CreatedAt); err != nil {
			return nil, err
		}
		mountains = append(mountains, m)
	}
	return mountains, rows.Err()
}

func Slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
