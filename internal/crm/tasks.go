package crm

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Service) ListTasks(ctx context.Context, q TaskQuery) (Page[Task], error) {
	return paginate[Task](s.DB.WithContext(ctx), q.scope, q.order, noScope, q.Page)
}

func (s *Service) GetTask(ctx context.Context, id uint64) (Task, error) {
	var t Task
	err := s.DB.WithContext(ctx).Where("id = ?", id).Take(&t).Error
	if isNotFound(err) {
		return Task{}, ErrNotFound
	}
	return t, err
}

func (s *Service) CreateTask(ctx context.Context, in TaskInput) (Task, error) {
	var out Task
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		verr := &ValidationError{}
		t := MergeTask(Task{}, in, Full, verr)
		if err := TaskRules.Run(ctx, s.env(tx), &t, verr); err != nil {
			return err
		}
		if err := verr.Err(); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&t).Error; err != nil {
			return storeError(err)
		}
		out = t
		return nil
	})
	return out, err
}

func (s *Service) UpdateTask(ctx context.Context, id uint64, in TaskInput, mode WriteMode) (Task, error) {
	var out Task
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Task
		if err := tx.Clauses(lockForUpdate).Where("id = ?", id).Take(&existing).Error; err != nil {
			if isNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		verr := &ValidationError{}
		t := MergeTask(existing, in, mode, verr)
		if err := TaskRules.Run(ctx, s.env(tx), &t, verr); err != nil {
			return err
		}
		if err := verr.Err(); err != nil {
			return err
		}

		err := tx.Model(&Task{}).Where("id = ?", id).Updates(map[string]any{
			"contact_id": t.ContactID,
			"title":      t.Title,
			"due_date":   t.DueDate,
			"priority":   t.Priority,
			"is_done":    t.IsDone,
		}).Error
		if err != nil {
			return storeError(err)
		}
		out = t
		return nil
	})
	return out, err
}

func (s *Service) DeleteTask(ctx context.Context, id uint64) error {
	res := s.DB.WithContext(ctx).Delete(&Task{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
