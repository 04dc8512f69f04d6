package crm

import "time"

// WriteMode selects which fields a write must carry.
type WriteMode int

const (
	// Partial applies only the submitted fields (PATCH).
	Partial WriteMode = iota
	// Full requires every required field to be submitted (POST, PUT).
	Full
)

// MergeContact applies in onto base and returns the candidate record.
// Shape problems (missing required field, null where not allowed) are
// reported in verr; value rules run later against the candidate.
func MergeContact(base Contact, in ContactInput, mode WriteMode, verr *ValidationError) Contact {
	c := base

	switch {
	case in.FullName.Invalid:
		verr.Add("full_name", msgString)
	case !in.FullName.Set:
		if mode == Full {
			verr.Add("full_name", msgRequired)
		}
	case in.FullName.Null:
		verr.Add("full_name", msgNull)
	default:
		c.FullName = in.FullName.Value
	}

	switch {
	case in.Phone.Invalid:
		verr.Add("phone", msgString)
	case in.Phone.Set:
		c.Phone = optionalText(in.Phone)
	}
	switch {
	case in.Email.Invalid:
		verr.Add("email", msgString)
	case in.Email.Set:
		c.Email = optionalText(in.Email)
	}

	if in.Status.Set {
		if in.Status.Invalid {
			verr.Add("status", msgString)
		} else if in.Status.Null {
			verr.Add("status", msgNull)
		} else {
			c.Status = Status(in.Status.Value)
		}
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	return c
}

func MergeTask(base Task, in TaskInput, mode WriteMode, verr *ValidationError) Task {
	t := base

	switch {
	case in.Contact.Invalid:
		verr.Add("contact", msgPKType)
	case !in.Contact.Set:
		if mode == Full {
			verr.Add("contact", msgRequired)
		}
	case in.Contact.Null:
		verr.Add("contact", msgNull)
	default:
		t.ContactID = in.Contact.Value
	}

	switch {
	case in.Title.Invalid:
		verr.Add("title", msgString)
	case !in.Title.Set:
		if mode == Full {
			verr.Add("title", msgRequired)
		}
	case in.Title.Null:
		verr.Add("title", msgNull)
	default:
		t.Title = in.Title.Value
	}

	if in.DueDate.Set {
		t.dueSubmitted = true
		if in.DueDate.Invalid {
			verr.Add("due_date", msgDateFmt)
		} else if in.DueDate.Null || in.DueDate.Value == "" {
			t.DueDate = nil
		} else if d, err := time.Parse(dateLayout, in.DueDate.Value); err != nil {
			verr.Add("due_date", msgDateFmt)
		} else {
			t.DueDate = &d
		}
	}

	if in.Priority.Set {
		if in.Priority.Invalid {
			verr.Add("priority", msgString)
		} else if in.Priority.Null {
			verr.Add("priority", msgNull)
		} else {
			t.Priority = Priority(in.Priority.Value)
		}
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}

	if in.IsDone.Set {
		if in.IsDone.Invalid {
			verr.Add("is_done", msgBool)
		} else if in.IsDone.Null {
			verr.Add("is_done", msgNull)
		} else {
			t.IsDone = in.IsDone.Value
		}
	}
	return t
}

// optionalText maps null and "" to nil so absent values never collide in
// the partial unique indexes.
func optionalText(o Optional[string]) *string {
	if o.Null || o.Value == "" {
		return nil
	}
	v := o.Value
	return &v
}
