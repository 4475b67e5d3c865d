package postgres

import (
	"context"
	"os"
	"testing"
)

func TestOpen_skipIfNoDatabaseURL(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping postgres test")
	}
	st, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()
	ctx := context.Background()
	rows, err := st.ListTasks(ctx, 10)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	_ = rows
}

func TestRebind(t *testing.T) {
	t.Parallel()
	got := rebind(`a = ? AND (b = ? OR c = ?)`, 2)
	want := `a = $2 AND (b = $3 OR c = $4)`
	if got != want {
		t.Fatalf("rebind: got %q, want %q", got, want)
	}
}
