package store

import (
	"database/sql"
	"time"

	"github.com/ayusman/glovecore/internal/calibration"
)

// sampleDelim separates the fields of a stored sample line.
const sampleDelim = ";"

// Sample is one calibration data point recorded for a profile.
type Sample struct {
	ID        int64     `json:"id"`
	ProfileID string    `json:"profile_id"`
	RunID     string    `json:"run_id"`
	Sequence  int       `json:"sequence"`
	Stage     int       `json:"stage"`
	Line      string    `json:"line"`
	CreatedAt time.Time `json:"created_at"`
}

// SampleRepository stores calibration samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create inserts the data points of one calibration run in a single transaction.
func (r *SampleRepository) Create(profileID, runID string, points []calibration.DataPoint) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO calibration_samples (profile_id, run_id, sequence, stage, line, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for i, p := range points {
		if _, err := stmt.Exec(profileID, runID, i, p.Stage, p.LogLine(sampleDelim), now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByProfileID retrieves all samples of a profile, oldest run first.
func (r *SampleRepository) GetByProfileID(profileID string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, profile_id, run_id, sequence, stage, line, created_at
		 FROM calibration_samples
		 WHERE profile_id = ?
		 ORDER BY id`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.ID, &s.ProfileID, &s.RunID, &s.Sequence, &s.Stage, &s.Line, &s.CreatedAt); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// DeleteByProfileID removes all samples of a profile.
func (r *SampleRepository) DeleteByProfileID(profileID string) error {
	_, err := r.db.Exec(`DELETE FROM calibration_samples WHERE profile_id = ?`, profileID)
	return err
}
