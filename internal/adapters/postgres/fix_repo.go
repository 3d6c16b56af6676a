package postgres

import (
	"context"

	"github.com/florapix/devicehub/internal/core/domain"
)

// FixRepo implements ports.FixRepository.
type FixRepo struct {
	db *DB
}

func NewFixRepo(db *DB) *FixRepo {
	return &FixRepo{db: db}
}

func (r *FixRepo) Insert(ctx context.Context, fix *domain.PositionFix) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO position_fixes (time, device_id, source, latitude, longitude, accuracy, altitude, altitude_accuracy, heading, speed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, fix.Time, fix.DeviceID, fix.Source,
		fix.Latitude, fix.Longitude,
		fix.Accuracy, fix.Altitude, fix.AltitudeAccuracy, fix.Heading, fix.Speed)
	return err
}

// Latest returns the most recent fixes for a device, newest first.
func (r *FixRepo) Latest(ctx context.Context, deviceID string, limit int) ([]domain.PositionFix, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT time, device_id, source, latitude, longitude, accuracy, altitude, altitude_accuracy, heading, speed
		FROM position_fixes
		WHERE device_id = $1
		ORDER BY time DESC
		LIMIT $2
	`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFixes(rows)
}

// List returns a page of fixes for a device plus the total count.
func (r *FixRepo) List(ctx context.Context, deviceID string, offset, limit int) ([]domain.PositionFix, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM position_fixes WHERE device_id = $1`, deviceID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT time, device_id, source, latitude, longitude, accuracy, altitude, altitude_accuracy, heading, speed
		FROM position_fixes
		WHERE device_id = $1
		ORDER BY time DESC
		OFFSET $2 LIMIT $3
	`, deviceID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	fixes, err := scanFixes(rows)
	if err != nil {
		return nil, 0, err
	}
	return fixes, total, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanFixes(rows rowScanner) ([]domain.PositionFix, error) {
	var fixes []domain.PositionFix
	for rows.Next() {
		var fix domain.PositionFix
		if err := rows.Scan(
			&fix.Time, &fix.DeviceID, &fix.Source,
			&fix.Latitude, &fix.Longitude,
			&fix.Accuracy, &fix.Altitude, &fix.AltitudeAccuracy, &fix.Heading, &fix.Speed,
		); err != nil {
			return nil, err
		}
		fixes = append(fixes, fix)
	}
	return fixes, rows.Err()
}
