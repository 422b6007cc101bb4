// Package custody exposes the narrow custody-service reference check the
// order engine consumes. Custody administration is a separate surface.
package custody

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/aurumdesk/aurumdesk/pkg/errors"
)

// CustodyService is a vaulting provider a sell order can reference.
type CustodyService struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReferenceChecker validates custody-service references on incoming
// orders.
type ReferenceChecker interface {
	CheckReference(ctx context.Context, custodyServiceID uuid.UUID) error
}

// Store implements ReferenceChecker over the custody table.
type Store struct {
	db *gorm.DB
}

// NewStore creates a custody store.
func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// CheckReference fails with InvalidInput when the custody service does not
// exist or is inactive.
func (s *Store) CheckReference(ctx context.Context, custodyServiceID uuid.UUID) error {
	var svc CustodyService
	if err := s.db.WithContext(ctx).Where("id = ?", custodyServiceID).First(&svc).Error; err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Newf(pkgerrors.CodeInvalidInput,
				"custody service %s does not exist", custodyServiceID)
		}
		return pkgerrors.Wrap(pkgerrors.CodeTransientFailure, "custody lookup failed", err)
	}
	if !svc.Active {
		return pkgerrors.Newf(pkgerrors.CodeInvalidInput,
			"custody service %s is not active", custodyServiceID)
	}
	return nil
}
