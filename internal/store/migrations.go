package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Profiles table - one calibrated hand profile per row
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			side TEXT NOT NULL CHECK(side IN ('right', 'left')),
			device TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Calibration samples table - raw data points recorded while calibrating a profile
		`CREATE TABLE IF NOT EXISTS calibration_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			run_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			stage INTEGER NOT NULL,
			line TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Pose templates table - reference poses recognised by the matcher
		`CREATE TABLE IF NOT EXISTS pose_templates (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			side TEXT NOT NULL CHECK(side IN ('right', 'left')),
			tolerance REAL NOT NULL DEFAULT 0.5,
			pose TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(name, side)
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_profiles_side_updated ON profiles(side, updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_calibration_samples_profile_id ON calibration_samples(profile_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
