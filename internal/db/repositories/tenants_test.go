package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/atriumhq/atrium/internal/db/models"
)

var tenantCols = []string{
	"id", "organization_id", "plan_id", "name", "status", "is_trial",
	"bucket_name", "bucket_region", "bucket_status", "deletion_date",
	"created_at", "updated_at",
}

func sampleTenantRow() *sqlmock.Rows {
	planID := "plan-1"
	return sqlmock.NewRows(tenantCols).
		AddRow("ten-1", "org-1", &planID, "Acme Pty Ltd", "active", false,
			nil, nil, "not_created", nil, time.Now(), time.Now())
}

func TestGetTenantByID_Found(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectQuery("SELECT.*FROM tenants.*WHERE id").
		WithArgs("ten-1").
		WillReturnRows(sampleTenantRow())

	tenant, err := store.GetTenantByID(context.Background(), "ten-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenant == nil {
		t.Fatal("expected tenant, got nil")
	}
	if tenant.Status != models.TenantStatusActive {
		t.Errorf("Status = %s, want active", tenant.Status)
	}
	if tenant.BucketStatus != models.BucketStatusNotCreated {
		t.Errorf("BucketStatus = %s, want not_created", tenant.BucketStatus)
	}
}

func TestGetTenantByID_NotFound(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectQuery("SELECT.*FROM tenants.*WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(tenantCols))

	tenant, err := store.GetTenantByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenant != nil {
		t.Errorf("expected nil tenant, got %v", tenant)
	}
}

func TestGetTenantByOrganization_Found(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectQuery("SELECT.*FROM tenants.*WHERE organization_id").
		WithArgs("org-1").
		WillReturnRows(sampleTenantRow())

	tenant, err := store.GetTenantByOrganization(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenant == nil {
		t.Fatal("expected tenant, got nil")
	}
}

func TestCreateTenant(t *testing.T) {
	store, mock := newStore(t)
	planID := "plan-1"
	mock.ExpectQuery("INSERT INTO tenants").
		WithArgs("ten-1", "org-1", &planID, "Acme Pty Ltd", "trial", true, "not_created").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))

	tenant := &models.Tenant{
		ID:             "ten-1",
		OrganizationID: "org-1",
		PlanID:         &planID,
		Name:           "Acme Pty Ltd",
		Status:         models.TenantStatusTrial,
		IsTrial:        true,
		BucketStatus:   models.BucketStatusNotCreated,
	}
	if err := store.CreateTenant(context.Background(), tenant); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateTenant_NotFound(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectExec("UPDATE tenants").
		WillReturnResult(sqlmock.NewResult(0, 0))

	tenant := &models.Tenant{ID: "missing", Name: "X", Status: models.TenantStatusActive}
	if err := store.UpdateTenant(context.Background(), tenant); err == nil {
		t.Error("expected error for missing tenant, got nil")
	}
}

func TestUpdateTenantBucket(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectExec("UPDATE tenants.*SET bucket_name").
		WithArgs("ten-1", "atrium-acme-pty-ltd-ten-1", "ap-southeast-2", "created").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateTenantBucket(context.Background(), "ten-1", "atrium-acme-pty-ltd-ten-1", "ap-southeast-2", models.BucketStatusCreated)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateTenantStatus(t *testing.T) {
	store, mock := newStore(t)
	when := time.Now().Add(90 * 24 * time.Hour)
	mock.ExpectExec("UPDATE tenants.*SET status").
		WithArgs("ten-1", "pending_deletion", &when).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateTenantStatus(context.Background(), "ten-1", models.TenantStatusPendingDeletion, &when)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateTenantStatus_NotFound(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectExec("UPDATE tenants.*SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateTenantStatus(context.Background(), "missing", models.TenantStatusInactive, nil)
	if err == nil {
		t.Error("expected error for missing tenant, got nil")
	}
}

func TestDeleteTenant(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectExec("DELETE FROM tenants WHERE id").
		WithArgs("ten-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.DeleteTenant(context.Background(), "ten-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
