package migrate

import (
	"context"
	"os"
	"testing"

	"aurum-storefront/internal/db"
)

func TestRollback_RejectsNonPositiveSteps(t *testing.T) {
	if err := Rollback(context.Background(), nil, 0); err == nil {
		t.Fatalf("expected error for zero steps")
	}
}

func TestMigrations_UpDown(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	if err := Apply(ctx, pool); err != nil {
		t.Fatalf("apply: %v", err)
	}
	v, dirty, err := Version(ctx, pool)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != 2 || dirty {
		t.Fatalf("expected clean version 2, got %d dirty=%v", v, dirty)
	}

	if err := Rollback(ctx, pool, 1); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if v, _, _ = Version(ctx, pool); v != 1 {
		t.Fatalf("expected version 1 after rollback, got %d", v)
	}
	if err := Apply(ctx, pool); err != nil {
		t.Fatalf("re-apply: %v", err)
	}
}
