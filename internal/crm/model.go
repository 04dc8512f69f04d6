package crm

import "time"

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Contact is a person tracked by the CRM. Phone and Email are nil when absent;
// uniqueness indexes only cover non-null values.
type Contact struct {
	ID        uint64    `gorm:"primaryKey"`
	FullName  string    `gorm:"size:255;not null"`
	Phone     *string   `gorm:"size:20"`
	Email     *string   `gorm:"size:255"`
	Status    Status    `gorm:"size:20;not null;default:active"`
	CreatedAt time.Time `gorm:"index;not null"`

	// OpenTasksCount is filled by list/retrieve queries, never stored.
	OpenTasksCount int64 `gorm:"->;-:migration"`
}

// Task belongs to exactly one contact. Title is unique per contact.
type Task struct {
	ID        uint64     `gorm:"primaryKey"`
	ContactID uint64     `gorm:"index;not null"`
	Title     string     `gorm:"size:255;not null"`
	DueDate   *time.Time `gorm:"type:date"`
	Priority  Priority   `gorm:"size:20;not null;default:medium"`
	IsDone    bool       `gorm:"not null;default:false"`
	CreatedAt time.Time  `gorm:"index;not null"`

	// Contact only exists to declare the cascading foreign key.
	Contact *Contact `gorm:"constraint:OnDelete:CASCADE"`

	// dueSubmitted is set when the write carried due_date. A stored date that
	// has since passed is not re-checked.
	dueSubmitted bool
}

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
