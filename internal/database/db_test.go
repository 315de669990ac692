package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestCloseDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	mock.ExpectClose()

	CloseDB(context.Background(), db)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestEnsureAdminSkipsWhenAdminExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1"))

	if err := EnsureAdmin(context.Background(), db, "Admin User", "admin@example.com", "admin123"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestEnsureAdminSeedsFirstAdmin(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM users").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "Admin User", "admin@example.com", sqlmock.AnyArg(), "admin").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := EnsureAdmin(context.Background(), db, "Admin User", "admin@example.com", "admin123"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
