package crm

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

func (s *Service) ListContacts(ctx context.Context, q ContactQuery) (Page[Contact], error) {
	return paginate[Contact](s.DB.WithContext(ctx), q.scope, q.order, withOpenTaskCounts, q.Page)
}

func (s *Service) GetContact(ctx context.Context, id uint64) (Contact, error) {
	return getContact(s.DB.WithContext(ctx), id)
}

func getContact(db *gorm.DB, id uint64) (Contact, error) {
	var c Contact
	err := db.Model(&Contact{}).Scopes(withOpenTaskCounts).Where("contacts.id = ?", id).Take(&c).Error
	if isNotFound(err) {
		return Contact{}, ErrNotFound
	}
	return c, err
}

func (s *Service) CreateContact(ctx context.Context, in ContactInput) (Contact, error) {
	var out Contact
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		verr := &ValidationError{}
		c := MergeContact(Contact{}, in, Full, verr)
		if err := ContactRules.Run(ctx, s.env(tx), &c, verr); err != nil {
			return err
		}
		if err := verr.Err(); err != nil {
			return err
		}
		if err := tx.Create(&c).Error; err != nil {
			return storeError(err)
		}
		out = c
		return nil
	})
	return out, err
}

func (s *Service) UpdateContact(ctx context.Context, id uint64, in ContactInput, mode WriteMode) (Contact, error) {
	var out Contact
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Contact
		if err := tx.Clauses(lockForUpdate).Where("id = ?", id).Take(&existing).Error; err != nil {
			if isNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		verr := &ValidationError{}
		c := MergeContact(existing, in, mode, verr)
		if err := ContactRules.Run(ctx, s.env(tx), &c, verr); err != nil {
			return err
		}
		if err := verr.Err(); err != nil {
			return err
		}

		err := tx.Model(&Contact{}).Where("id = ?", id).Updates(map[string]any{
			"full_name": c.FullName,
			"phone":     c.Phone,
			"email":     c.Email,
			"status":    c.Status,
		}).Error
		if err != nil {
			return storeError(err)
		}

		out, err = getContact(tx, id)
		return err
	})
	return out, err
}

// DeleteContact removes the contact and, in the same transaction, its tasks.
// The foreign key cascades as well; the explicit delete keeps the behavior
// independent of the store enforcing it.
func (s *Service) DeleteContact(ctx context.Context, id uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contact_id = ?", id).Delete(&Task{}).Error; err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		res := tx.Delete(&Contact{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
