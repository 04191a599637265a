package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for automation persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Automation, error)
	List(ctx context.Context) ([]Automation, error)
	ListEnabled(ctx context.Context) ([]Automation, error)
	Create(ctx context.Context, auto *Automation) error
	Update(ctx context.Context, auto *Automation) error
	Delete(ctx context.Context, id string) error
}

// automationColumns is the SELECT column list for automation queries.
const automationColumns = `id, alias, description, enabled, definition, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves an automation by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	auto, err := scanAutomationRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying automation by id: %w", err)
	}
	return auto, nil
}

// List retrieves all automations ordered by alias then id.
func (r *SQLiteRepository) List(ctx context.Context) ([]Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations ORDER BY alias, id`
	return r.queryAutomations(ctx, query)
}

// ListEnabled retrieves all enabled automations ordered by alias then id.
func (r *SQLiteRepository) ListEnabled(ctx context.Context) ([]Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE enabled = 1 ORDER BY alias, id`
	return r.queryAutomations(ctx, query)
}

// Create inserts a new automation.
func (r *SQLiteRepository) Create(ctx context.Context, auto *Automation) error {
	definitionJSON, err := json.Marshal(auto.Definition)
	if err != nil {
		return fmt.Errorf("marshalling definition: %w", err)
	}

	now := time.Now().UTC()
	if auto.CreatedAt.IsZero() {
		auto.CreatedAt = now
	}
	auto.UpdatedAt = now

	query := `
		INSERT INTO automations (
			id, alias, description, enabled, definition, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		auto.ID,
		auto.Alias,
		nullableString(auto.Description),
		boolToInt(auto.Enabled),
		string(definitionJSON),
		auto.CreatedAt.Format(time.RFC3339),
		auto.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting automation: %w", err)
	}
	return nil
}

// Update modifies an existing automation.
func (r *SQLiteRepository) Update(ctx context.Context, auto *Automation) error {
	definitionJSON, err := json.Marshal(auto.Definition)
	if err != nil {
		return fmt.Errorf("marshalling definition: %w", err)
	}

	auto.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE automations SET
			alias = ?, description = ?, enabled = ?, definition = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		auto.Alias,
		nullableString(auto.Description),
		boolToInt(auto.Enabled),
		string(definitionJSON),
		auto.UpdatedAt.Format(time.RFC3339),
		auto.ID,
	)
	if err != nil {
		return fmt.Errorf("updating automation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an automation by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM automations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting automation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// queryAutomations executes a query and returns a slice of automations.
func (r *SQLiteRepository) queryAutomations(ctx context.Context, query string, args ...any) ([]Automation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying automations: %w", err)
	}
	defer rows.Close()

	var automations []Automation
	for rows.Next() {
		auto, scanErr := scanAutomationRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning automation: %w", scanErr)
		}
		automations = append(automations, *auto)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating automations: %w", err)
	}
	return automations, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAutomationRow(scanner rowScanner) (*Automation, error) {
	var a Automation
	var description sql.NullString
	var definitionJSON string
	var enabled int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&a.ID,
		&a.Alias,
		&description,
		&enabled,
		&definitionJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		a.Description = &description.String
	}
	a.Enabled = enabled != 0

	// Parse timestamps (stored as RFC3339 by SQLite default expressions)
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		a.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		a.UpdatedAt = t
	}

	// Unmarshal definition JSON
	if definitionJSON != "" && definitionJSON != "null" {
		if jsonErr := json.Unmarshal([]byte(definitionJSON), &a.Definition); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling definition: %w", jsonErr)
		}
	}
	if a.Definition == nil {
		a.Definition = map[string]any{}
	}

	return &a, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
