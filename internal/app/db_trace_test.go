package app

import (
	"strings"
	"testing"
)

func TestTraceQuery_CollapsesWhitespace(t *testing.T) {
	got := traceQuery("  SELECT *\n\tFROM listings\n  WHERE org_id = $1  ")
	want := "SELECT * FROM listings WHERE org_id = $1"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTraceQuery_TruncatesLongStatements(t *testing.T) {
	long := "SELECT " + strings.Repeat("col, ", 100) + "id FROM listings"
	got := traceQuery(long)
	if len(got) != spanQueryMaxLen+3 {
		t.Fatalf("truncated length = %d, want %d", len(got), spanQueryMaxLen+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got[len(got)-10:])
	}
}

func TestTraceQuery_Empty(t *testing.T) {
	if got := traceQuery("   "); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
