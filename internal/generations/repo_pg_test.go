package generations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var entryColumns = []string{
	"id", "user_id", "user_email", "job_title", "company_name", "match_score",
	"original_name", "status", "analysis_outcome", "render_outcome", "storage_key", "created_at",
}

func TestPGRepoCreateAnonymousUsesNulls(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	entry := Entry{
		ID:               "11111111-1111-1111-1111-111111111111",
		UserEmail:        AnonymousEmail,
		JobTitle:         "Candidate Application",
		CompanyName:      "JobFit Pro",
		MatchScore:       0,
		OriginalFileName: "cv.docx",
		Status:           StatusSuccess,
		AnalysisOutcome:  "degraded",
		RenderOutcome:    "rendered",
		CreatedAt:        time.Now().UTC(),
	}
	mock.ExpectExec("INSERT INTO generation_logs").
		WithArgs(
			entry.ID,
			nil, // user_id
			entry.UserEmail,
			entry.JobTitle,
			entry.CompanyName,
			entry.MatchScore,
			entry.OriginalFileName,
			entry.Status,
			entry.AnalysisOutcome,
			entry.RenderOutcome,
			nil, // storage_key
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := (&PGRepo{DB: db}).Create(context.Background(), entry); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDOwnership(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	mock.ExpectQuery("FROM generation_logs").
		WithArgs("gen-1").
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow("gen-1", "owner", "o@example.com", "SRE", "Acme", 77, "cv.docx", "SUCCESS", "parsed", "rendered", nil, now))
	if _, err := repo.GetByID(context.Background(), "intruder", "gen-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	mock.ExpectQuery("FROM generation_logs").
		WithArgs("gen-2").
		WillReturnRows(sqlmock.NewRows(entryColumns))
	if _, err := repo.GetByID(context.Background(), "owner", "gen-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoListAndDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs("owner", 100, 0).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow("gen-1", "owner", "o@example.com", "SRE", "Acme", 77, "cv.docx", "SUCCESS", "parsed", "rendered", "k/1", now))
	entries, err := repo.ListByUser(context.Background(), "owner", 500, -1)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(entries) != 1 || entries[0].StorageKey != "k/1" || entries[0].MatchScore != 77 {
		t.Fatalf("unexpected entries %+v", entries)
	}

	mock.ExpectExec("DELETE FROM generation_logs").
		WithArgs("gen-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Delete(context.Background(), "gen-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	mock.ExpectExec("DELETE FROM generation_logs").
		WithArgs("gen-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Delete(context.Background(), "gen-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
