package store

import (
	"context"

	"vaccine-scheduler/internal/apperr"
	"vaccine-scheduler/internal/model"
)

// AddDoses creates the vaccine on first use and adds to its count afterwards.
// The increment happens inside the upsert, so concurrent adders never clobber
// each other.
func (s *Store) AddDoses(ctx context.Context, name string, doses int) error {
	if name == "" {
		return apperr.New(apperr.CodeInvalidArgument, "vaccine name required")
	}
	if doses < 0 {
		return apperr.New(apperr.CodeInvalidArgument, "dose count must be non-negative")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO vaccines (name, doses) VALUES ($1,$2)
		 ON CONFLICT (name) DO UPDATE SET doses = vaccines.doses + EXCLUDED.doses`,
		name, doses,
	)
	if err != nil {
		return apperr.FromPG("add doses", err)
	}
	return nil
}

// TryReserveDose decrements the count by one iff at least one dose remains.
// The check and the decrement are a single guarded UPDATE; of two callers
// racing for the last dose exactly one succeeds.
func (s *Store) TryReserveDose(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vaccines SET doses = doses - 1 WHERE name = $1 AND doses > 0`,
		name,
	)
	if err != nil {
		return apperr.FromPG("reserve dose", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	// zero rows: either the vaccine is unknown or it is out of stock
	var doses int
	err = s.pool.QueryRow(ctx, `SELECT doses FROM vaccines WHERE name = $1`, name).Scan(&doses)
	if err != nil {
		return apperr.FromPG("vaccine lookup", err)
	}
	if doses > 0 {
		// stock reappeared between the update and the lookup; tell the
		// caller to retry the whole reservation
		return apperr.Newf(apperr.CodeConflict, "lost a race reserving a dose of %s", name)
	}
	return apperr.Newf(apperr.CodeInsufficientDoses, "no doses left for %s", name)
}

// ReturnDose is the compensation path: it puts a previously reserved dose
// back after a failed reservation, and restores one on cancellation.
func (s *Store) ReturnDose(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vaccines SET doses = doses + 1 WHERE name = $1`, name,
	)
	if err != nil {
		return apperr.FromPG("return dose", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.CodeNotFound, "unknown vaccine %s", name)
	}
	return nil
}

func (s *Store) VaccineByName(ctx context.Context, name string) (*model.VaccineStock, error) {
	v := &model.VaccineStock{}
	err := s.pool.QueryRow(ctx,
		`SELECT name, doses FROM vaccines WHERE name = $1`, name,
	).Scan(&v.Name, &v.Doses)
	if err != nil {
		return nil, apperr.FromPG("vaccine lookup", err)
	}
	return v, nil
}

func (s *Store) ListVaccines(ctx context.Context) ([]model.VaccineStock, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, doses FROM vaccines ORDER BY name`)
	if err != nil {
		return nil, apperr.FromPG("list vaccines", err)
	}
	defer rows.Close()

	var out []model.VaccineStock
	for rows.Next() {
		var v model.VaccineStock
		if err := rows.Scan(&v.Name, &v.Doses); err != nil {
			return nil, apperr.FromPG("list vaccines", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromPG("list vaccines", err)
	}
	return out, nil
}
