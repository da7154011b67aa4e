package store

import (
	"context"
	"time"

	"vaccine-scheduler/internal/apperr"
)

// PublishAvailability registers a caregiver as bookable on the given day.
// Re-publishing the same day is an error: the composite primary key rejects
// it and the duplicate surfaces as ALREADY_EXISTS.
func (s *Store) PublishAvailability(ctx context.Context, caregiver string, day time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO availabilities (caregiver_username, day) VALUES ($1,$2)`,
		caregiver, day,
	)
	if err != nil {
		return apperr.FromPG("publish availability", err)
	}
	return nil
}

// AvailableCaregivers returns the caregivers open on the given day in
// lexicographic username order. The order is load-bearing: the coordinator
// assigns the first claimable candidate.
func (s *Store) AvailableCaregivers(ctx context.Context, day time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT caregiver_username FROM availabilities WHERE day = $1 ORDER BY caregiver_username`,
		day,
	)
	if err != nil {
		return nil, apperr.FromPG("list available caregivers", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, apperr.FromPG("list available caregivers", err)
		}
		out = append(out, username)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromPG("list available caregivers", err)
	}
	return out, nil
}

// ClaimSlot removes the slot iff it still exists. The DELETE is the atomic
// claim: of concurrent claimers for the same (caregiver, day) exactly one
// sees an affected row.
func (s *Store) ClaimSlot(ctx context.Context, caregiver string, day time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM availabilities WHERE caregiver_username = $1 AND day = $2`,
		caregiver, day,
	)
	if err != nil {
		return false, apperr.FromPG("claim slot", err)
	}
	return tag.RowsAffected() == 1, nil
}
