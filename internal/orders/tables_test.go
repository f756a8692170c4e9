package orders

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-table-orders/internal/apperr"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Mesa 5", "Mesa-5"},
		{"1", "Mesa-01"},
		{"12", "Mesa-12"},
		{" 0 7 ", "Mesa-07"},
		{"Área VIP", "Area-Vip"},
		{"varanda_externa - fundos", "Varanda-Externa-Fundos"},
		{"Balcão #3!", "Balcao-3"},
		{"", ""},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			if got := Slugify(tc.in); got != tc.want {
				t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestUniqueSlug(t *testing.T) {
	used := map[string]bool{"Mesa-5": true, "Mesa-5-2": true}
	taken := func(_ context.Context, s string) (bool, error) { return used[s], nil }

	got, err := UniqueSlug(context.Background(), "Mesa-5", taken)
	if err != nil || got != "Mesa-5-3" {
		t.Fatalf("got %q, %v", got, err)
	}
	got, _ = UniqueSlug(context.Background(), "", taken)
	if got != "Mesa" {
		t.Fatalf("empty base: got %q", got)
	}
}

func TestTableTransitions(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.tables[1] = Table{ID: 1, Name: "1", Status: TableMaintenance}
	tbl := st.tables[1]

	if err := Occupy(ctx, st, &tbl); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("maintenance table must not be occupied: %v", err)
	}
	if err := Release(ctx, st, &tbl); err != nil || st.tables[1].Status != TableFree {
		t.Fatalf("release from maintenance: %v", err)
	}
	if err := Occupy(ctx, st, &tbl); err != nil || tbl.Status != TableOccupied {
		t.Fatalf("occupy: %v", err)
	}
	if err := Occupy(ctx, st, &tbl); err != nil {
		t.Fatalf("occupying twice is a no-op: %v", err)
	}
}

func TestCheckAdminStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    TableStatus
		to      TableStatus
		pending bool
		want    apperr.Kind
	}{
		{name: "free to reserved", from: TableFree, to: TableReserved},
		{name: "reserved to maintenance", from: TableReserved, to: TableMaintenance},
		{name: "unchanged", from: TableOccupied, to: TableOccupied, pending: true},
		{name: "manual occupy", from: TableFree, to: TableOccupied, want: apperr.KindInvalidArgument},
		{name: "occupied to free by hand", from: TableOccupied, to: TableFree, pending: true, want: apperr.KindConflict},
		{name: "reserved with open order", from: TableReserved, to: TableFree, pending: true, want: apperr.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAdminStatus(Table{Name: "x", Status: tt.from}, tt.to, tt.pending)
			if apperr.KindOf(err) != tt.want {
				t.Fatalf("got %v, want %q", err, tt.want)
			}
		})
	}
}

func TestParseEnums(t *testing.T) {
	if _, err := ParseTableStatus("reserved"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseTableStatus("livre"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := ParsePaymentMethod("pix"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParsePaymentMethod("bitcoin"); err == nil {
		t.Fatal("expected error")
	}
}
