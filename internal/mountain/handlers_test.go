package mountain

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
)

func TestMountainHandlersCreateGetList(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	createdAt := time.Now()
	mock.ExpectQuery(`INSERT INTO mountains`).
		WithArgs(pgxmock.AnyArg(), "semeru", "Semeru", "", "indonesia", 3676, "desc").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))
	mock.ExpectQuery(`SELECT id, slug`).
		WithArgs("semeru").
		WillReturnRows(pgxmock.NewRows(mountainColumns).
			AddRow("m-1", "semeru", "Semeru", "", "indonesia", 3676, "desc", createdAt))
	mock.ExpectQuery(`FROM mountains`).
		WithArgs("").
		WillReturnRows(pgxmock.NewRows(mountainColumns).
			AddRow("m-1", "semeru", "Semeru", "", "indonesia", 3676, "desc", createdAt))

	app := fiber.New()
	RegisterRoutes(app.Group("/mountains"), NewService(mock), func(c *fiber.Ctx) error { return c.Next() })

	body, _ := json.Marshal(Mountain{Name: "Semeru", CountrySlug: "indonesia", ElevationM: 3676, Description: "desc"})
	req := httptest.NewRequest(http.MethodPost, "/mountains/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/mountains/semeru", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("get status: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/mountains/", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list status: %v", err)
	}
	var list []Mountain
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil || len(list) != 1 {
		t.Fatalf("unexpected list body: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMountainHandlersErrors(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, slug`).WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT id, slug`).WithArgs("broken").WillReturnError(errDB)
	mock.ExpectQuery(`FROM mountains`).WithArgs("nepal").WillReturnError(errDB)
	mock.ExpectQuery(`INSERT INTO mountains`).
		WithArgs(pgxmock.AnyArg(), "semeru", "Semeru", "", "indonesia", 0, "").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	app := fiber.New()
	RegisterRoutes(app.Group("/mountains"), NewService(mock), func(c *fiber.Ctx) error { return c.Next() })

	cases := []struct {
		method string
		path   string
		body   []byte
		status int
	}{
		{http.MethodGet, "/mountains/missing", nil, http.StatusNotFound},
		{http.MethodGet, "/mountains/broken", nil, http.StatusInternalServerError},
		{http.MethodGet, "/mountains/?country=nepal", nil, http.StatusInternalServerError},
		{http.MethodPost, "/mountains/", []byte(`{"name":""}`), http.StatusBadRequest},
		{http.MethodPost, "/mountains/", []byte(`{bad`), http.StatusBadRequest},
		{http.MethodPost, "/mountains/", []byte(`{"name":"Semeru","country_slug":"indonesia"}`), http.StatusConflict},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, bytes.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.method, tc.path, err)
		}
		if resp.StatusCode != tc.status {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, resp.StatusCode)
		}
	}
}

func TestMountainHandlersWithoutDatabase(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/mountains"), NewService(nil), func(c *fiber.Ctx) error { return c.Next() })

	for _, path := range []string{"/mountains/", "/mountains/rinjani"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("GET %s: expected 503, got %d", path, resp.StatusCode)
		}
	}
}
