package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/profile"
)

// Profile is a hand profile stored in the database.
type Profile struct {
	ID        string
	Name      string
	Side      hand.Side
	Device    device.Kind
	Data      *profile.HandProfile
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileRepository provides CRUD operations for profiles.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

const profileColumns = `id, name, side, device, data, created_at, updated_at`

// Create inserts a new profile. Side and Device are taken from Data.
func (r *ProfileRepository) Create(p *Profile) error {
	if p.Data == nil {
		return fmt.Errorf("profile %q has no data: %w", p.ID, hand.ErrInvalidArgument)
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Side, p.Device = p.Data.Side, p.Data.Device

	_, err := r.db.Exec(
		`INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Side.String(), p.Device.String(), p.Data.Serialize(), p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID retrieves a profile by its ID.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	return scanProfile(r.db.QueryRow(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
}

// Latest retrieves the most recently updated profile of a hand.
func (r *ProfileRepository) Latest(side hand.Side) (*Profile, error) {
	return scanProfile(r.db.QueryRow(
		`SELECT `+profileColumns+` FROM profiles WHERE side = ?
		 ORDER BY updated_at DESC, rowid DESC LIMIT 1`,
		side.String(),
	))
}

// List retrieves all profiles, most recently updated first.
func (r *ProfileRepository) List() ([]*Profile, error) {
	rows, err := r.db.Query(`SELECT ` + profileColumns + ` FROM profiles ORDER BY updated_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

// Update stores new name and data for an existing profile.
func (r *ProfileRepository) Update(p *Profile) error {
	if p.Data == nil {
		return fmt.Errorf("profile %q has no data: %w", p.ID, hand.ErrInvalidArgument)
	}
	p.UpdatedAt = time.Now()
	p.Side, p.Device = p.Data.Side, p.Data.Device

	result, err := r.db.Exec(
		`UPDATE profiles SET name = ?, side = ?, device = ?, data = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Side.String(), p.Device.String(), p.Data.Serialize(), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// Delete removes a profile and its calibration samples.
func (r *ProfileRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// ResetCalibration removes every profile of a hand, so the next session
// starts from the device defaults. It returns the number of profiles removed.
func (r *ProfileRepository) ResetCalibration(side hand.Side) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM profiles WHERE side = ?`, side.String())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	p := &Profile{}
	var side, kind, data string

	err := row.Scan(&p.ID, &p.Name, &side, &kind, &data, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if p.Side, err = hand.ParseSide(side); err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.ID, err)
	}
	if p.Device, err = device.ParseKind(kind); err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.ID, err)
	}
	if p.Data, err = profile.Deserialize(data); err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.ID, err)
	}
	return p, nil
}
