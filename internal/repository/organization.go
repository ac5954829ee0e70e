package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stackfluence/stackfluence/internal/model"
)

// Common errors for organization repository operations.
var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrSlugExists           = errors.New("organization slug already exists")
)

// CreateOrganization inserts a new organization into the database.
func (r *Repository) CreateOrganization(ctx context.Context, org *model.Organization) error {
	query := `
		INSERT INTO organizations (id, name, slug, contact_email, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		org.ID,
		org.Name,
		org.Slug,
		org.ContactEmail,
		org.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugExists
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

// GetOrganizationByID retrieves an organization by its ID.
func (r *Repository) GetOrganizationByID(ctx context.Context, id string) (*model.Organization, error) {
	query := `
		SELECT id, name, slug, contact_email, created_at
		FROM organizations
		WHERE id = $1
	`

	var org model.Organization
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.ContactEmail,
		&org.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization by ID: %w", err)
	}

	return &org, nil
}

// GetOrganizationBySlug retrieves an organization by its slug.
func (r *Repository) GetOrganizationBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	query := `
		SELECT id, name, slug, contact_email, created_at
		FROM organizations
		WHERE slug = $1
	`

	var org model.Organization
	err := r.pool.QueryRow(ctx, query, slug).Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.ContactEmail,
		&org.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization by slug: %w", err)
	}

	return &org, nil
}

// GetOrCreateOrganization gets an organization by slug or creates one if not found.
func (r *Repository) GetOrCreateOrganization(ctx context.Context, org *model.Organization) (*model.Organization, error) {
	existing, err := r.GetOrganizationBySlug(ctx, org.Slug)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrOrganizationNotFound) {
		return nil, err
	}

	org.CreatedAt = time.Now()
	if err := r.CreateOrganization(ctx, org); err != nil {
		// Handle race condition - another request may have created it
		if errors.Is(err, ErrSlugExists) {
			return r.GetOrganizationBySlug(ctx, org.Slug)
		}
		return nil, err
	}

	return org, nil
}
