package store

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/mohammad-safakhou/copilot/models"
)

func TestConnectTimeoutDefault(t *testing.T) {
	if got := connectTimeout(0); got != defaultConnectTimeout {
		t.Fatalf("zero timeout should use the default, got %v", got)
	}
	if got := connectTimeout(-time.Second); got != defaultConnectTimeout {
		t.Fatalf("negative timeout should use the default, got %v", got)
	}
	if got := connectTimeout(12 * time.Second); got != 12*time.Second {
		t.Fatalf("configured timeout should pass through, got %v", got)
	}
}

func TestArchivePlanUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectExec(`INSERT INTO plan_archive`).
		WithArgs("cafe_0101_1200", "research", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	plan := models.BusinessPlan{"business_name": "Cafe"}
	if err := st.ArchivePlan(context.Background(), "cafe_0101_1200", plan, models.StageResearch); err != nil {
		t.Fatalf("ArchivePlan: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetPlanRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectQuery(`SELECT stage, document FROM plan_archive WHERE plan_id=\$1`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"stage", "document"}).
			AddRow("costing", []byte(`{"business_name":"Cafe","estimated_startup_cost":25000}`)))

	plan, stage, err := st.GetPlan(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if stage != models.StageCosting {
		t.Fatalf("stage = %s", stage)
	}
	if plan["business_name"] != "Cafe" {
		t.Fatalf("plan = %v", plan)
	}
}

func TestGetPlanNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectQuery(`SELECT stage, document FROM plan_archive`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"stage", "document"}))

	if _, _, err := st.GetPlan(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListPlans(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	st := &Store{DB: db}
	mock.ExpectQuery(`SELECT plan_id, stage, updated_at FROM plan_archive ORDER BY updated_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"plan_id", "stage", "updated_at"}).
			AddRow("p2", "launch", now).
			AddRow("p1", "idea", now.Add(-time.Hour)))

	plans, err := st.ListPlans(context.Background())
	if err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
	if len(plans) != 2 || plans[0].PlanID != "p2" || plans[0].Stage != models.StageLaunch {
		t.Fatalf("plans = %+v", plans)
	}
}

func TestDeletePlan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectExec(`DELETE FROM plan_archive WHERE plan_id=\$1`).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.DeletePlan(context.Background(), "p1"); err != nil {
		t.Fatalf("DeletePlan: %v", err)
	}
}
