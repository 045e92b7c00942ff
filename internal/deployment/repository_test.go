// internal/deployment/repository_test.go
//
// Repository tests using sqlmock, focused on the transactional pointer
// swap and the SQL-enforced status guards.

package deployment

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestFinalize_AtomicPointerSwap(t *testing.T) {
	repo, mock := newMockRepo(t)
	d := &Deployment{ID: "dep-1", SiteID: 9, Status: StatusProcessing}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE deployment SET status = 'live', file_count = ?, total_size = ?, finished_at = ? WHERE id = ? AND status = 'processing'`,
	)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE site SET active_deployment_id = ?, updated_at = ? WHERE id = ?`,
	)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Finalize(context.Background(), d, 3, 4096); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if d.Status != StatusLive || d.FileCount != 3 || d.TotalSize != 4096 || d.FinishedAt == nil {
		t.Fatalf("deployment not updated in place: %+v", d)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestFinalize_RefusedUnlessProcessing(t *testing.T) {
	repo, mock := newMockRepo(t)
	d := &Deployment{ID: "dep-1", SiteID: 9, Status: StatusLive}

	// The status guard lives in the WHERE clause: zero rows affected
	// means wrong source state, and the pointer update never runs.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE deployment SET status = 'live'").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := repo.Finalize(context.Background(), d, 1, 10); err != ErrBadTransition {
		t.Fatalf("err = %v, want ErrBadTransition", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestMarkProcessing_GuardsSourceState(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE deployment SET status = 'processing'").
		WithArgs("dep-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkProcessing(context.Background(), "dep-2"); err != ErrBadTransition {
		t.Fatalf("err = %v, want ErrBadTransition", err)
	}
}

func TestRollback_TargetMustBeLive(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT site_id, status FROM deployment").
		WithArgs("dep-3").
		WillReturnRows(sqlmock.NewRows([]string{"site_id", "status"}).AddRow(9, "failed"))
	mock.ExpectRollback()

	if err := repo.Rollback(context.Background(), 9, "dep-3"); err != ErrNotLive {
		t.Fatalf("err = %v, want ErrNotLive", err)
	}
}

func TestRollback_RepointsOnly(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT site_id, status FROM deployment").
		WithArgs("dep-4").
		WillReturnRows(sqlmock.NewRows([]string{"site_id", "status"}).AddRow(9, "live"))
	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE site SET active_deployment_id = ?, updated_at = ? WHERE id = ?`,
	)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Rollback(context.Background(), 9, "dep-4"); err != nil {
		t.Fatalf("Rollback error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestRollback_WrongSite(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT site_id, status FROM deployment").
		WithArgs("dep-5").
		WillReturnRows(sqlmock.NewRows([]string{"site_id", "status"}).AddRow(8, "live"))
	mock.ExpectRollback()

	if err := repo.Rollback(context.Background(), 9, "dep-5"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
