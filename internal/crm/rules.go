package crm

import (
	"context"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	minTextLen   = 3
	maxTextLen   = 255
	maxPhoneLen  = 20
	dateLayout   = "2006-01-02"
	msgRequired  = "This field is required."
	msgNull      = "This field may not be null."
	msgBlank     = "This field may not be blank."
	msgPhone     = "Phone must be numeric with optional leading +"
	msgEmail     = "Enter a valid email address."
	msgPastDue   = "Due date cannot be in the past"
	msgDateFmt   = "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	msgTaskTitle = "The fields contact, title must make a unique set."
	msgString    = "Not a valid string."
	msgBool      = "Must be a valid boolean."
	msgPKType    = "Incorrect type. Expected pk value."
)

var (
	phoneRe  = regexp.MustCompile(`^\+?\d+$`)
	validate = validator.New()
)

// Lookup answers the store questions record rules need. Implementations are
// bound to the write transaction; exclude is the id of the record being
// updated (0 on create).
type Lookup interface {
	ContactExists(ctx context.Context, id uint64) (bool, error)
	PhoneTaken(ctx context.Context, phone string, exclude uint64) (bool, error)
	EmailTaken(ctx context.Context, email string, exclude uint64) (bool, error)
	TaskTitleTaken(ctx context.Context, contactID uint64, title string, exclude uint64) (bool, error)
}

// RuleEnv is everything a rule may consult besides the candidate record.
type RuleEnv struct {
	Today  time.Time
	Lookup Lookup
}

// Rule checks one aspect of a candidate record and returns a message for
// Field when it fails. A rule is skipped once Field already has a message.
type Rule[T any] struct {
	Field string
	Check func(ctx context.Context, env RuleEnv, rec *T) (string, error)
}

// Rules is an ordered rule list. Field rules never touch the store; store
// rules only run when every field rule passed.
type Rules[T any] struct {
	Field []Rule[T]
	Store []Rule[T]
}

func (rs Rules[T]) Run(ctx context.Context, env RuleEnv, rec *T, verr *ValidationError) error {
	if err := runRules(ctx, env, rs.Field, rec, verr); err != nil {
		return err
	}
	if !verr.Empty() {
		return nil
	}
	return runRules(ctx, env, rs.Store, rec, verr)
}

func runRules[T any](ctx context.Context, env RuleEnv, rules []Rule[T], rec *T, verr *ValidationError) error {
	for _, r := range rules {
		if _, failed := verr.Fields[r.Field]; failed {
			continue
		}
		msg, err := r.Check(ctx, env, rec)
		if err != nil {
			return err
		}
		if msg != "" {
			verr.Add(r.Field, msg)
		}
	}
	return nil
}

var ContactRules = Rules[Contact]{
	Field: []Rule[Contact]{
		{Field: "full_name", Check: func(_ context.Context, _ RuleEnv, c *Contact) (string, error) {
			return textLength(c.FullName, maxTextLen), nil
		}},
		{Field: "phone", Check: func(_ context.Context, _ RuleEnv, c *Contact) (string, error) {
			if c.Phone == nil {
				return "", nil
			}
			if utf8.RuneCountInString(*c.Phone) > maxPhoneLen {
				return fmt.Sprintf("Ensure this field has no more than %d characters.", maxPhoneLen), nil
			}
			if !phoneRe.MatchString(*c.Phone) {
				return msgPhone, nil
			}
			return "", nil
		}},
		{Field: "email", Check: func(_ context.Context, _ RuleEnv, c *Contact) (string, error) {
			if c.Email == nil {
				return "", nil
			}
			if utf8.RuneCountInString(*c.Email) > maxTextLen {
				return fmt.Sprintf("Ensure this field has no more than %d characters.", maxTextLen), nil
			}
			if validate.Var(*c.Email, "email") != nil {
				return msgEmail, nil
			}
			return "", nil
		}},
		{Field: "status", Check: func(_ context.Context, _ RuleEnv, c *Contact) (string, error) {
			if !c.Status.Valid() {
				return invalidChoice(string(c.Status)), nil
			}
			return "", nil
		}},
	},
	Store: []Rule[Contact]{
		{Field: "phone", Check: func(ctx context.Context, env RuleEnv, c *Contact) (string, error) {
			if c.Phone == nil {
				return "", nil
			}
			taken, err := env.Lookup.PhoneTaken(ctx, *c.Phone, c.ID)
			if err != nil || !taken {
				return "", err
			}
			return "contact with this phone already exists.", nil
		}},
		{Field: "email", Check: func(ctx context.Context, env RuleEnv, c *Contact) (string, error) {
			if c.Email == nil {
				return "", nil
			}
			taken, err := env.Lookup.EmailTaken(ctx, *c.Email, c.ID)
			if err != nil || !taken {
				return "", err
			}
			return "contact with this email already exists.", nil
		}},
	},
}

var TaskRules = Rules[Task]{
	Field: []Rule[Task]{
		{Field: "title", Check: func(_ context.Context, _ RuleEnv, t *Task) (string, error) {
			return textLength(t.Title, maxTextLen), nil
		}},
		{Field: "due_date", Check: func(_ context.Context, env RuleEnv, t *Task) (string, error) {
			if t.dueSubmitted && t.DueDate != nil && Date(*t.DueDate).Before(Date(env.Today)) {
				return msgPastDue, nil
			}
			return "", nil
		}},
		{Field: "priority", Check: func(_ context.Context, _ RuleEnv, t *Task) (string, error) {
			if !t.Priority.Valid() {
				return invalidChoice(string(t.Priority)), nil
			}
			return "", nil
		}},
	},
	Store: []Rule[Task]{
		{Field: "contact", Check: func(ctx context.Context, env RuleEnv, t *Task) (string, error) {
			ok, err := env.Lookup.ContactExists(ctx, t.ContactID)
			if err != nil || ok {
				return "", err
			}
			return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", t.ContactID), nil
		}},
		{Field: NonFieldErrors, Check: func(ctx context.Context, env RuleEnv, t *Task) (string, error) {
			taken, err := env.Lookup.TaskTitleTaken(ctx, t.ContactID, t.Title, t.ID)
			if err != nil || !taken {
				return "", err
			}
			return msgTaskTitle, nil
		}},
	},
}

// textLength counts characters, not bytes, and does not trim.
func textLength(s string, max int) string {
	n := utf8.RuneCountInString(s)
	switch {
	case n == 0:
		return msgBlank
	case n < minTextLen:
		return fmt.Sprintf("Ensure this field has at least %d characters.", minTextLen)
	case n > max:
		return fmt.Sprintf("Ensure this field has no more than %d characters.", max)
	}
	return ""
}

func invalidChoice(v string) string {
	return fmt.Sprintf("%q is not a valid choice.", v)
}
