package rls

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const ownerSetting = "app.current_user_id"

var (
	ErrMissingOwner = errors.New("rls: missing owner")
	ErrMissingDB    = errors.New("rls: missing database handle")
)

// Scope binds a storage handle to the identity that owns every row it touches.
// Row visibility is enforced by the database policies, not by callers.
type Scope struct {
	UserID uuid.UUID
	DB     *gorm.DB
}

func NewScope(db *gorm.DB, userID uuid.UUID) Scope {
	return Scope{UserID: userID, DB: db}
}

// Run executes fn in a transaction bound to the scope owner.
func (s Scope) Run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.UserID == uuid.Nil {
		return ErrMissingOwner
	}
	if s.DB == nil {
		return ErrMissingDB
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := WithOwner(tx, s.UserID); err != nil {
			return err
		}
		return fn(tx)
	})
}

// WithOwner sets the transaction-local owner used by the row-level policies.
// Dialects without row-level security are left untouched.
func WithOwner(tx *gorm.DB, userID uuid.UUID) error {
	if tx.Dialector == nil || tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT set_config(?, ?, true)", ownerSetting, userID.String()).Error
}
