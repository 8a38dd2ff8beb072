package billing

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreRegisterIncrementsOnFirstEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO subscriptions").WithArgs("owner-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO analysis_usage_events").WithArgs("owner-1", "job-1").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE subscriptions SET analyses_used = analyses_used \\+ 1").WithArgs("owner-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := store.Register(context.Background(), "owner-1", "job-1")
	if err != nil || !ok {
		t.Fatalf("Register=%v err=%v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreRegisterSkipsDuplicateEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO subscriptions").WithArgs("owner-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO analysis_usage_events").WithArgs("owner-1", "job-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := store.Register(context.Background(), "owner-1", "job-1")
	if err != nil || ok {
		t.Fatalf("Register=%v err=%v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreGetOrCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO subscriptions").WithArgs("owner-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT owner_id, plan, analyses_used").
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "plan", "analyses_used", "period_start", "created_at", "updated_at"}).
			AddRow("owner-1", "pro", 7, now, now, now))

	sub, err := NewPGStore(db).GetOrCreate(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if sub.Plan != PlanPro || sub.AnalysesUsed != 7 {
		t.Fatalf("unexpected subscription %+v", sub)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
