// Package analytics aggregates the run event log into per-stage and
// per-run statistics for the `sonataforge stats` command.
package analytics

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"
)

// DB is the interface for database queries used by analytics.
type DB interface {
	Conn() *sql.DB
}

// StageDuration holds duration stats for a pipeline stage.
type StageDuration struct {
	Stage string  `json:"stage"`
	Count int     `json:"count"`
	Avg   float64 `json:"avg_seconds"`
	P50   float64 `json:"p50_seconds"`
	P95   float64 `json:"p95_seconds"`
}

// timestamp formats to try when parsing timestamps from the database
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, f := range timestampFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}

// QueryStageDurations returns average and percentile durations per stage.
// Each compiled/stage_completed/completed event is paired with the most
// recent prior event for the same run. Duration > 0 is attributed to the
// end event's stage.
func QueryStageDurations(database DB, since string) ([]StageDuration, error) {
	query := `
		SELECT re1.run_id, re1.stage, re1.timestamp as end_ts,
			(SELECT MAX(re2.timestamp) FROM run_events re2
			 WHERE re2.run_id = re1.run_id
			 AND re2.id < re1.id) as start_ts
		FROM run_events re1
		WHERE re1.event IN ('compiled', 'stage_completed', 'completed')
		AND re1.stage != ''`

	args := []interface{}{}
	if since != "" {
		query += ` AND re1.timestamp >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stage durations: %w", err)
	}
	defer rows.Close()

	stageDurations := make(map[string][]float64)
	for rows.Next() {
		var runID string
		var stage string
		var endTS string
		var startTS sql.NullString
		if err := rows.Scan(&runID, &stage, &endTS, &startTS); err != nil {
			return nil, fmt.Errorf("scan stage duration: %w", err)
		}
		if !startTS.Valid {
			continue
		}
		start, err := parseTimestamp(startTS.String)
		if err != nil {
			continue
		}
		end, err := parseTimestamp(endTS)
		if err != nil {
			continue
		}
		seconds := end.Sub(start).Seconds()
		if seconds > 0 {
			stageDurations[stage] = append(stageDurations[stage], seconds)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var results []StageDuration
	for stage, durations := range stageDurations {
		sort.Float64s(durations)
		results = append(results, StageDuration{
			Stage: stage,
			Count: len(durations),
			Avg:   avg(durations),
			P50:   percentile(durations, 50),
			P95:   percentile(durations, 95),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Stage < results[j].Stage
	})
	return results, nil
}

// OutcomeSummary holds terminal outcome counts across runs.
type OutcomeSummary struct {
	Total       int     `json:"total"`
	Completed   float64 `json:"completed_pct"`
	Aborted     float64 `json:"aborted_pct"`
	StageFailed float64 `json:"stage_failed_pct"`
	Unfinished  float64 `json:"unfinished_pct"`
}

// QueryRunOutcomes returns how runs ended. Runs with a created event but
// no terminal event (interrupted mid-pipeline) count as unfinished.
func QueryRunOutcomes(database DB, since string) (OutcomeSummary, error) {
	query := `
		SELECT
			SUM(CASE WHEN event = 'created' THEN 1 ELSE 0 END) as created,
			SUM(CASE WHEN event = 'completed' THEN 1 ELSE 0 END) as completed,
			SUM(CASE WHEN event = 'aborted' THEN 1 ELSE 0 END) as aborted,
			SUM(CASE WHEN event = 'stage_failed' THEN 1 ELSE 0 END) as stage_failed
		FROM run_events
		WHERE event IN ('created', 'completed', 'aborted', 'stage_failed')`

	args := []interface{}{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}

	var created, completed, aborted, stageFailed sql.NullInt64
	if err := database.Conn().QueryRow(query, args...).Scan(&created, &completed, &aborted, &stageFailed); err != nil {
		return OutcomeSummary{}, fmt.Errorf("query run outcomes: %w", err)
	}

	total := int(created.Int64)
	terminal := int(completed.Int64 + aborted.Int64 + stageFailed.Int64)
	unfinished := total - terminal
	if unfinished < 0 {
		unfinished = 0
	}
	return OutcomeSummary{
		Total:       total,
		Completed:   pct(int(completed.Int64), total),
		Aborted:     pct(int(aborted.Int64), total),
		StageFailed: pct(int(stageFailed.Int64), total),
		Unfinished:  pct(unfinished, total),
	}, nil
}

// RepairRoundDist holds the distribution of repair rounds needed before a
// candidate compiled.
type RepairRoundDist struct {
	Total     int     `json:"total"`
	Zero      float64 `json:"zero_rounds_pct"`
	One       float64 `json:"one_round_pct"`
	Two       float64 `json:"two_rounds_pct"`
	ThreePlus float64 `json:"three_plus_pct"`
}

// QueryRepairRounds returns how many repair rounds compiled scores needed.
// The attempt column on a compiled event is the number of repairs consumed.
func QueryRepairRounds(database DB, since string) (RepairRoundDist, error) {
	query := `
		SELECT attempt
		FROM run_events
		WHERE event = 'compiled'`

	args := []interface{}{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return RepairRoundDist{}, fmt.Errorf("query repair rounds: %w", err)
	}
	defer rows.Close()

	var dist RepairRoundDist
	var zero, one, two, threePlus int
	for rows.Next() {
		var attempt sql.NullInt64
		if err := rows.Scan(&attempt); err != nil {
			return RepairRoundDist{}, fmt.Errorf("scan repair round: %w", err)
		}
		dist.Total++
		switch attempt.Int64 {
		case 0:
			zero++
		case 1:
			one++
		case 2:
			two++
		default:
			threePlus++
		}
	}
	if err := rows.Err(); err != nil {
		return RepairRoundDist{}, err
	}

	dist.Zero = pct(zero, dist.Total)
	dist.One = pct(one, dist.Total)
	dist.Two = pct(two, dist.Total)
	dist.ThreePlus = pct(threePlus, dist.Total)
	return dist, nil
}

// RunEventView holds a single event for the run-detail view.
type RunEventView struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Stage     string `json:"stage,omitempty"`
	Attempt   int    `json:"attempt,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// QueryRunDetail returns the full event timeline for one run. A run ID
// prefix is enough as long as it is unambiguous.
func QueryRunDetail(database DB, runID string) ([]RunEventView, error) {
	rows, err := database.Conn().Query(
		`SELECT timestamp, event, stage, attempt, detail
		 FROM run_events WHERE run_id LIKE ? || '%' ORDER BY timestamp, id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query run detail: %w", err)
	}
	defer rows.Close()

	var results []RunEventView
	for rows.Next() {
		var e RunEventView
		var stage, detail sql.NullString
		var attempt sql.NullInt64
		if err := rows.Scan(&e.Timestamp, &e.Event, &stage, &attempt, &detail); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		if stage.Valid {
			e.Stage = stage.String
		}
		if attempt.Valid {
			e.Attempt = int(attempt.Int64)
		}
		if detail.Valid {
			e.Detail = detail.String
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// --- helpers ---

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*10) / 10
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper || upper >= len(sorted) {
		return math.Round(sorted[lower]*10) / 10
	}
	weight := rank - float64(lower)
	return math.Round((sorted[lower]*(1-weight)+sorted[upper]*weight)*10) / 10
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}
