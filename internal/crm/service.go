package crm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service implements the contact and task operations on top of gorm. It
// holds no request state; every write runs in its own transaction.
type Service struct {
	DB     *gorm.DB
	Paging Paging
	Now    func() time.Time

	// Lookups binds the store rules to a write transaction.
	Lookups func(tx *gorm.DB) Lookup
}

func NewService(db *gorm.DB, paging Paging) *Service {
	return &Service{DB: db, Paging: paging, Now: time.Now, Lookups: TxLookup}
}

// TxLookup answers rule lookups with queries on tx.
func TxLookup(tx *gorm.DB) Lookup {
	return gormLookup{tx: tx}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) env(tx *gorm.DB) RuleEnv {
	lookups := s.Lookups
	if lookups == nil {
		lookups = TxLookup
	}
	return RuleEnv{Today: Date(s.now()), Lookup: lookups(tx)}
}

// storeError maps constraint violations that slipped past the pre-checks.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

var lockForUpdate = clause.Locking{Strength: "UPDATE"}

type gormLookup struct {
	tx *gorm.DB
}

func (l gormLookup) exists(ctx context.Context, model any, query string, args ...any) (bool, error) {
	var n int64
	err := l.tx.WithContext(ctx).Model(model).Where(query, args...).Limit(1).Count(&n).Error
	return n > 0, err
}

func (l gormLookup) ContactExists(ctx context.Context, id uint64) (bool, error) {
	return l.exists(ctx, &Contact{}, "id = ?", id)
}

func (l gormLookup) PhoneTaken(ctx context.Context, phone string, exclude uint64) (bool, error) {
	return l.exists(ctx, &Contact{}, "phone = ? AND id <> ?", phone, exclude)
}

func (l gormLookup) EmailTaken(ctx context.Context, email string, exclude uint64) (bool, error) {
	return l.exists(ctx, &Contact{}, "email = ? AND id <> ?", email, exclude)
}

func (l gormLookup) TaskTitleTaken(ctx context.Context, contactID uint64, title string, exclude uint64) (bool, error) {
	return l.exists(ctx, &Task{}, "contact_id = ? AND title = ? AND id <> ?", contactID, title, exclude)
}
