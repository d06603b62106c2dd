package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sablepoint/dealdesk/internal/models"
	"github.com/sablepoint/dealdesk/internal/persistence"
)

// contactsRepo implements ContactsRepo for PostgreSQL
type contactsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewContactsRepo creates a new PostgreSQL contacts repository
func NewContactsRepo(db *sqlx.DB, timeout time.Duration) persistence.ContactsRepo {
	return &contactsRepo{db: db, timeout: timeout}
}

const contactColumns = `id, name, organization, tier, warmth_score, last_touch_at, access_paths, attributes, created_at, updated_at`

// Insert adds a new contact
func (r *contactsRepo) Insert(ctx context.Context, contact *models.Contact) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := models.ParseTier(string(contact.Tier)); err != nil {
		return err
	}

	pathsJSON, attributesJSON, err := marshalContactJSON(contact)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO contacts (name, organization, tier, warmth_score, last_touch_at, access_paths, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err = r.db.QueryRowxContext(ctx, query,
		contact.Name, contact.Organization, contact.Tier,
		contact.WarmthScore, contact.LastTouchAt, pathsJSON, attributesJSON).
		Scan(&contact.ID, &contact.CreatedAt, &contact.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate contact: %w", err)
		}
		return fmt.Errorf("failed to insert contact: %w", err)
	}

	return nil
}

// Update persists mutable contact fields
func (r *contactsRepo) Update(ctx context.Context, contact *models.Contact) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	pathsJSON, attributesJSON, err := marshalContactJSON(contact)
	if err != nil {
		return err
	}

	query := `
		UPDATE contacts
		SET name = $1, organization = $2, tier = $3, warmth_score = $4,
		    last_touch_at = $5, access_paths = $6, attributes = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`

	err = r.db.QueryRowxContext(ctx, query,
		contact.Name, contact.Organization, contact.Tier, contact.WarmthScore,
		contact.LastTouchAt, pathsJSON, attributesJSON, contact.ID).
		Scan(&contact.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("contact %d not found", contact.ID)
		}
		return fmt.Errorf("failed to update contact: %w", err)
	}

	return nil
}

// GetByID retrieves a single contact
func (r *contactsRepo) GetByID(ctx context.Context, id int64) (*models.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`

	row := r.db.QueryRowxContext(ctx, query, id)
	contact, err := scanContact(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get contact by id: %w", err)
	}

	return contact, nil
}

// List returns contacts ordered by warmth descending
func (r *contactsRepo) List(ctx context.Context, limit int) ([]models.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + contactColumns + ` FROM contacts ORDER BY warmth_score DESC, name ASC LIMIT $1`

	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	return scanContacts(rows)
}

// UpdateWarmth persists a recomputed warmth score and last-touch time
func (r *contactsRepo) UpdateWarmth(ctx context.Context, id int64, score float64, lastTouch *time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE contacts
		SET warmth_score = $1, last_touch_at = $2, updated_at = NOW()
		WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, score, lastTouch, id)
	if err != nil {
		return fmt.Errorf("failed to update warmth: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check warmth update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("contact %d not found", id)
	}

	return nil
}

// Helpers

func marshalContactJSON(contact *models.Contact) ([]byte, []byte, error) {
	paths := contact.AccessPaths
	if paths == nil {
		paths = []int64{}
	}
	pathsJSON, err := json.Marshal(paths)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal access paths: %w", err)
	}

	attributesJSON, err := json.Marshal(contact.Attributes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}

	return pathsJSON, attributesJSON, nil
}

func scanContact(row rowScanner) (*models.Contact, error) {
	var contact models.Contact
	var pathsJSON, attributesJSON []byte

	err := row.Scan(
		&contact.ID, &contact.Name, &contact.Organization, &contact.Tier,
		&contact.WarmthScore, &contact.LastTouchAt,
		&pathsJSON, &attributesJSON, &contact.CreatedAt, &contact.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(pathsJSON) > 0 {
		if err := json.Unmarshal(pathsJSON, &contact.AccessPaths); err != nil {
			return nil, fmt.Errorf("failed to unmarshal access paths: %w", err)
		}
	}
	if len(attributesJSON) > 0 {
		if err := json.Unmarshal(attributesJSON, &contact.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
		}
	}

	return &contact, nil
}

func scanContacts(rows *sqlx.Rows) ([]models.Contact, error) {
	var contacts []models.Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return contacts, nil
}
