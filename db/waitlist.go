package db

import "context"

// AddToWaitlist records the address, ignoring repeat signups.
func (s *Store) AddToWaitlist(ctx context.Context, email string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM waitlist WHERE email = ?", email).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx, "INSERT INTO waitlist (email) VALUES (?)", email)
	return err
}
