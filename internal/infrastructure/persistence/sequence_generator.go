package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const nextSequenceSQL = `INSERT INTO document_sequences (tenant_id, kind, year, last_value, updated_at)
VALUES (?, ?, ?, 1, ?)
ON CONFLICT (tenant_id, kind, year)
DO UPDATE SET last_value = document_sequences.last_value + 1, updated_at = excluded.updated_at
RETURNING last_value`

// GormSequenceGenerator issues document numbers from the document_sequences
// table. The upsert takes a row lock, so two transactions asking for the same
// series serialize and never receive the same value.
type GormSequenceGenerator struct {
	db *gorm.DB
}

// NewGormSequenceGenerator creates a new GormSequenceGenerator
func NewGormSequenceGenerator(db *gorm.DB) *GormSequenceGenerator {
	return &GormSequenceGenerator{db: db}
}

// Next returns the next value of the (tenant, kind, year) series, starting at 1
func (g *GormSequenceGenerator) Next(ctx context.Context, tenantID uuid.UUID, kind billing.DocumentKind, year int) (int64, error) {
	var next int64
	err := g.db.WithContext(ctx).
		Raw(nextSequenceSQL, tenantID, string(kind), year, time.Now()).
		Scan(&next).Error
	if err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", kind, err)
	}
	if next < 1 {
		return 0, fmt.Errorf("next %s sequence: no value returned", kind)
	}
	return next, nil
}

var _ billing.SequenceGenerator = (*GormSequenceGenerator)(nil)
