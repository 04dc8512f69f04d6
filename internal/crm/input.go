package crm

import (
	"bytes"

	"github.com/bytedance/sonic"
)

// Optional records whether a JSON field was present and whether it was null,
// which plain pointers cannot tell apart. A value of the wrong JSON type sets
// Invalid instead of failing the whole body.
type Optional[T any] struct {
	Set     bool
	Null    bool
	Invalid bool
	Value   T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	if err := sonic.ConfigStd.Unmarshal(data, &o.Value); err != nil {
		var zero T
		o.Value = zero
		o.Invalid = true
	}
	return nil
}

// ContactInput is the writable subset of a contact. Read-only fields sent by
// clients (id, created_at, open_tasks_count) are ignored.
type ContactInput struct {
	FullName Optional[string] `json:"full_name"`
	Phone    Optional[string] `json:"phone"`
	Email    Optional[string] `json:"email"`
	Status   Optional[string] `json:"status"`
}

type TaskInput struct {
	Contact  Optional[uint64] `json:"contact"`
	Title    Optional[string] `json:"title"`
	DueDate  Optional[string] `json:"due_date"`
	Priority Optional[string] `json:"priority"`
	IsDone   Optional[bool]   `json:"is_done"`
}
