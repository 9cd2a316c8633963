// internal/migrate/migrate_test.go
//
// Registry ordering rules and Migrator behaviour against sqlmock.

package migrate

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/billing-api/internal/database"
)

func twoStep() *Registry {
	r := NewRegistry()
	_ = r.Add(Migration{Name: "A", Database: database.MySQL,
		Up: []string{"CREATE TABLE a (id INT)"}, Down: []string{"DROP TABLE a"}})
	_ = r.Add(Migration{Name: "B", Database: database.MySQL,
		Up: []string{"CREATE TABLE b (id INT)"}, Down: []string{"DROP TABLE b"}})
	return r
}

func mockSet(t *testing.T) (*database.Set, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	set := database.NewSet(nil)
	if err := set.Add(database.MySQL, database.Wrap(database.Config{Name: "app"}, sqlx.NewDb(db, "mysql"))); err != nil {
		t.Fatalf("add: %v", err)
	}
	return set, mock
}

func TestRegistry_OrderAndDuplicates(t *testing.T) {
	r := twoStep()
	if got := r.Names(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("names = %v, want [A B]", got)
	}

	err := r.Add(Migration{Name: "A", Database: database.MySQL})
	if !errors.Is(err, ErrDuplicateMigration) {
		t.Fatalf("duplicate add: err = %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("len = %d after rejected add", r.Len())
	}

	if err := r.Add(Migration{Name: "C"}); err == nil {
		t.Fatal("missing database identifier accepted")
	}
}

func TestApply_RunsPendingInOrder(t *testing.T) {
	set, mock := mockSet(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectApplied)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("A"))
	mock.ExpectQuery(regexp.QuoteMeta(selectBatch)).
		WillReturnRows(sqlmock.NewRows([]string{"batch"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (id INT)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(insertApplied)).
		WithArgs("B", 2).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ran, err := New(set, twoStep(), nil).Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(ran) != 1 || ran[0] != "B" {
		t.Fatalf("ran = %v, want [B]", ran)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestApply_UpToDate(t *testing.T) {
	set, mock := mockSet(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectApplied)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("A").AddRow("B"))

	ran, err := New(set, twoStep(), nil).Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(ran) != 0 {
		t.Fatalf("ran = %v, want none", ran)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestApply_FailureRollsBack(t *testing.T) {
	set, mock := mockSet(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectApplied)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectQuery(regexp.QuoteMeta(selectBatch)).
		WillReturnRows(sqlmock.NewRows([]string{"batch"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a (id INT)")).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	ran, err := New(set, twoStep(), nil).Apply(context.Background())
	if err == nil {
		t.Fatal("Apply succeeded, want error")
	}
	if len(ran) != 0 {
		t.Fatalf("ran = %v, want none", ran)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestRevert_LastBatchNewestFirst(t *testing.T) {
	set, mock := mockSet(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectBatch)).
		WillReturnRows(sqlmock.NewRows([]string{"batch"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(selectInBatch)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("A").AddRow("B"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE b")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(deleteApplied)).WithArgs("B").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE a")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(deleteApplied)).WithArgs("A").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	reverted, err := New(set, twoStep(), nil).Revert(context.Background())
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if len(reverted) != 2 || reverted[0] != "B" || reverted[1] != "A" {
		t.Fatalf("reverted = %v, want [B A]", reverted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestApply_UnknownDatabase(t *testing.T) {
	r := NewRegistry()
	_ = r.Add(Migration{Name: "X", Database: "other"})

	_, err := New(database.NewSet(nil), r, nil).Apply(context.Background())
	if err == nil {
		t.Fatal("Apply succeeded against an empty set")
	}
}
