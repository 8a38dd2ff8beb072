package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGRepoCreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("INSERT INTO users").
		WithArgs("id-1", "ivy", "", "hash", false).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	repo := &PGRepo{DB: db}
	err = repo.Create(context.Background(), User{ID: "id-1", Username: "ivy", PasswordHash: "hash"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT id, username, email").
		WithArgs("x@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "is_admin", "created_at", "updated_at"}))

	repo := &PGRepo{DB: db}
	if _, err := repo.GetByEmail(context.Background(), "x@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoGetByUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, username, email").
		WithArgs("jo").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "is_admin", "created_at", "updated_at"}).
			AddRow("id-2", "jo", "jo@example.com", "hash", true, now, now))

	repo := &PGRepo{DB: db}
	user, err := repo.GetByUsername(context.Background(), "jo")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if user.ID != "id-2" || !user.IsAdmin {
		t.Fatalf("unexpected user %+v", user)
	}
}
