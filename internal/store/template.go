package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/pose"
)

// Template is a named reference pose stored in the database.
type Template struct {
	ID        string
	Name      string
	Side      hand.Side
	Tolerance float64
	Pose      pose.HandPose
	CreatedAt time.Time
}

// Matcher returns the template in the form the pose matcher uses.
func (t *Template) Matcher() *pose.Template {
	return pose.NewTemplate(t.Name, t.Pose, t.Tolerance)
}

// TemplateRepository provides CRUD operations for pose templates.
type TemplateRepository struct {
	db *sql.DB
}

// Templates returns the template repository for this store.
func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{db: s.db}
}

// Create inserts a new template. Side is taken from the pose.
func (r *TemplateRepository) Create(t *Template) error {
	t.CreatedAt = time.Now()
	t.Side = t.Pose.Side

	_, err := r.db.Exec(
		`INSERT INTO pose_templates (id, name, side, tolerance, pose, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Side.String(), t.Tolerance, t.Pose.Serialize(), t.CreatedAt,
	)
	return err
}

// GetByID retrieves a template by its ID.
func (r *TemplateRepository) GetByID(id string) (*Template, error) {
	t, err := scanTemplate(r.db.QueryRow(
		`SELECT id, name, side, tolerance, pose, created_at FROM pose_templates WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// ListBySide retrieves the templates of one hand in creation order.
func (r *TemplateRepository) ListBySide(side hand.Side) ([]*Template, error) {
	rows, err := r.db.Query(
		`SELECT id, name, side, tolerance, pose, created_at
		 FROM pose_templates WHERE side = ? ORDER BY created_at, rowid`,
		side.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return templates, nil
}

// Delete removes a template by its ID.
func (r *TemplateRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM pose_templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func scanTemplate(row rowScanner) (*Template, error) {
	t := &Template{}
	var side, record string
	if err := row.Scan(&t.ID, &t.Name, &side, &t.Tolerance, &record, &t.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if t.Side, err = hand.ParseSide(side); err != nil {
		return nil, fmt.Errorf("template %s: %w", t.ID, err)
	}
	if t.Pose, err = pose.Deserialize(record); err != nil {
		return nil, fmt.Errorf("template %s: %w", t.ID, err)
	}
	return t, nil
}
