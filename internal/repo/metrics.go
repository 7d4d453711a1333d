package repo

import "context"

// CountTasksStartedBetween counts tasks whose actual start date falls in
// the RFC 3339 range [start, end].
func (r Repo) CountTasksStartedBetween(ctx context.Context, start, end string) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE actual_start_date IS NOT NULL AND actual_start_date >= ? AND actual_start_date <= ?`, start, end).Scan(&n)
	return n, err
}

// CountTasksCompletedBetween counts tasks whose actual complete date
// falls in the RFC 3339 range [start, end].
func (r Repo) CountTasksCompletedBetween(ctx context.Context, start, end string) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE actual_complete_date IS NOT NULL AND actual_complete_date >= ? AND actual_complete_date <= ?`, start, end).Scan(&n)
	return n, err
}
