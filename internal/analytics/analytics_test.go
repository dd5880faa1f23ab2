package analytics

import (
	"database/sql"
	"testing"

	"github.com/lucasnoah/sonataforge/internal/db"
)

func testDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func exec(t *testing.T, conn *sql.DB, query string, args ...interface{}) {
	t.Helper()
	if _, err := conn.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func event(t *testing.T, conn *sql.DB, runID, ev, stage string, attempt int, ts string) {
	t.Helper()
	exec(t, conn,
		`INSERT INTO run_events (run_id, event, stage, attempt, timestamp) VALUES (?, ?, ?, ?, ?)`,
		runID, ev, stage, attempt, ts)
}

// --- QueryStageDurations ---

func TestQueryStageDurations(t *testing.T) {
	d := testDB(t)
	c := d.Conn()

	// Run a: compile takes 10s, run b: compile takes 20s.
	event(t, c, "run-a", "created", "generate", 0, "2026-06-01 10:00:00")
	event(t, c, "run-a", "compiled", "compile", 0, "2026-06-01 10:00:10")
	event(t, c, "run-b", "created", "generate", 0, "2026-06-02 10:00:00")
	event(t, c, "run-b", "compiled", "compile", 0, "2026-06-02 10:00:20")

	results, err := QueryStageDurations(d, "")
	if err != nil {
		t.Fatalf("QueryStageDurations: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 stage duration result, got %d", len(results))
	}

	compile := results[0]
	if compile.Stage != "compile" {
		t.Errorf("stage = %q, want compile", compile.Stage)
	}
	if compile.Count != 2 {
		t.Errorf("compile count = %d, want 2", compile.Count)
	}
	if compile.Avg != 15.0 {
		t.Errorf("compile avg = %f, want 15.0", compile.Avg)
	}
}

func TestQueryStageDurations_MultiStage(t *testing.T) {
	d := testDB(t)
	c := d.Conn()

	// One run across three stages; each end event is paired with the
	// nearest prior event, never with the run's start.
	event(t, c, "run-a", "created", "generate", 0, "2026-06-01 10:00:00")
	event(t, c, "run-a", "compiled", "compile", 0, "2026-06-01 10:00:08")
	event(t, c, "run-a", "stage_completed", "synthesize", 0, "2026-06-01 10:00:11")
	event(t, c, "run-a", "completed", "video", 0, "2026-06-01 10:00:16")

	results, err := QueryStageDurations(d, "")
	if err != nil {
		t.Fatalf("QueryStageDurations: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(results))
	}

	want := map[string]float64{"compile": 8.0, "synthesize": 3.0, "video": 5.0}
	for _, r := range results {
		if r.Avg != want[r.Stage] {
			t.Errorf("%s avg = %f, want %f", r.Stage, r.Avg, want[r.Stage])
		}
	}
}

func TestQueryStageDurations_Since(t *testing.T) {
	d := testDB(t)
	c := d.Conn()

	event(t, c, "old", "created", "generate", 0, "2026-01-01 10:00:00")
	event(t, c, "old", "compiled", "compile", 0, "2026-01-01 10:00:30")
	event(t, c, "new", "created", "generate", 0, "2026-06-01 10:00:00")
	event(t, c, "new", "compiled", "compile", 0, "2026-06-01 10:00:10")

	results, err := QueryStageDurations(d, "2026-05-01")
	if err != nil {
		t.Fatalf("QueryStageDurations: %v", err)
	}
	if len(results) != 1 || results[0].Count != 1 {
		t.Fatalf("expected only the recent run, got %+v", results)
	}
	if results[0].Avg != 10.0 {
		t.Errorf("avg = %f, want 10.0", results[0].Avg)
	}
}

// --- QueryRunOutcomes ---

func TestQueryRunOutcomes(t *testing.T) {
	d := testDB(t)
	c := d.Conn()

	event(t, c, "a", "created", "generate", 0, "2026-06-01 10:00:00")
	event(t, c, "a", "completed", "video", 0, "2026-06-01 10:01:00")
	event(t, c, "b", "created", "generate", 0, "2026-06-01 11:00:00")
	event(t, c, "b", "aborted", "compile", 2, "2026-06-01 11:01:00")
	event(t, c, "c", "created", "generate", 0, "2026-06-01 12:00:00")
	event(t, c, "c", "stage_failed", "rasterize", 0, "2026-06-01 12:01:00")
	event(t, c, "d", "created", "generate", 0, "2026-06-01 13:00:00")

	sum, err := QueryRunOutcomes(d, "")
	if err != nil {
		t.Fatalf("QueryRunOutcomes: %v", err)
	}
	if sum.Total != 4 {
		t.Errorf("total = %d, want 4", sum.Total)
	}
	if sum.Completed != 25.0 || sum.Aborted != 25.0 || sum.StageFailed != 25.0 || sum.Unfinished != 25.0 {
		t.Errorf("percentages = %+v, want 25%% each", sum)
	}
}

func TestQueryRunOutcomes_Empty(t *testing.T) {
	d := testDB(t)

	sum, err := QueryRunOutcomes(d, "")
	if err != nil {
		t.Fatalf("QueryRunOutcomes: %v", err)
	}
	if sum.Total != 0 || sum.Completed != 0 {
		t.Errorf("expected zero summary, got %+v", sum)
	}
}

// --- QueryRepairRounds ---

func TestQueryRepairRounds(t *testing.T) {
	d := testDB(t)
	c := d.Conn()

	// Two first-try compiles, one after a single repair, one after three.
	event(t, c, "a", "compiled", "compile", 0, "2026-06-01 10:00:00")
	event(t, c, "b", "compiled", "compile", 0, "2026-06-01 11:00:00")
	event(t, c, "c", "compiled", "compile", 1, "2026-06-01 12:00:00")
	event(t, c, "d", "compiled", "compile", 3, "2026-06-01 13:00:00")
	// Failed compiles never count.
	event(t, c, "e", "compile_failed", "compile", 0, "2026-06-01 14:00:00")

	dist, err := QueryRepairRounds(d, "")
	if err != nil {
		t.Fatalf("QueryRepairRounds: %v", err)
	}
	if dist.Total != 4 {
		t.Errorf("total = %d, want 4", dist.Total)
	}
	if dist.Zero != 50.0 {
		t.Errorf("zero = %f, want 50.0", dist.Zero)
	}
	if dist.One != 25.0 {
		t.Errorf("one = %f, want 25.0", dist.One)
	}
	if dist.Two != 0 {
		t.Errorf("two = %f, want 0", dist.Two)
	}
	if dist.ThreePlus != 25.0 {
		t.Errorf("threePlus = %f, want 25.0", dist.ThreePlus)
	}
}

// --- QueryRunDetail ---

func TestQueryRunDetail_PrefixMatch(t *testing.T) {
	d := testDB(t)
	c := d.Conn()

	event(t, c, "deadbeef-0001", "created", "generate", 0, "2026-06-01 10:00:00")
	event(t, c, "deadbeef-0001", "compiled", "compile", 0, "2026-06-01 10:00:05")
	event(t, c, "deadbeef-0001", "completed", "video", 0, "2026-06-01 10:00:20")
	event(t, c, "other-run", "created", "generate", 0, "2026-06-01 11:00:00")

	events, err := QueryRunDetail(d, "deadbeef")
	if err != nil {
		t.Fatalf("QueryRunDetail: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Event != "created" || events[2].Event != "completed" {
		t.Errorf("events out of order: %+v", events)
	}
	if events[2].Stage != "video" {
		t.Errorf("stage = %q, want video", events[2].Stage)
	}
}

// --- helpers ---

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(sorted, 50); got != 5.5 {
		t.Errorf("p50 = %f, want 5.5", got)
	}
	if got := percentile(sorted, 95); got != 9.6 {
		t.Errorf("p95 = %f, want 9.6", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("p50 of empty = %f, want 0", got)
	}
}

func TestPct(t *testing.T) {
	if got := pct(1, 3); got != 33.3 {
		t.Errorf("pct(1,3) = %f, want 33.3", got)
	}
	if got := pct(5, 0); got != 0 {
		t.Errorf("pct(5,0) = %f, want 0", got)
	}
}
