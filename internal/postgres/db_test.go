package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestPgCode(t *testing.T) {
	wrapped := fmt.Errorf("insert order: %w", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "orders_number_key"})
	code, constraint := pgCode(wrapped)
	if code != codeUniqueViolation || constraint != "orders_number_key" {
		t.Fatalf("got %q %q", code, constraint)
	}
	if code, _ := pgCode(errors.New("boom")); code != "" {
		t.Fatalf("plain error mapped to %q", code)
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	body, err := migrationFS.ReadFile("migrations/001_init.sql")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"orders_number_key", "orders_one_pending_per_table", "order_items_order_product_key"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("schema is missing %s", want)
		}
	}
}
