package crm

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
)

type fakeLookup struct {
	contacts map[uint64]bool
	phones   map[string]uint64
	emails   map[string]uint64
	titles   map[uint64]map[string]uint64
}

func (f fakeLookup) ContactExists(_ context.Context, id uint64) (bool, error) {
	return f.contacts[id], nil
}

func (f fakeLookup) PhoneTaken(_ context.Context, phone string, exclude uint64) (bool, error) {
	id, ok := f.phones[phone]
	return ok && id != exclude, nil
}

func (f fakeLookup) EmailTaken(_ context.Context, email string, exclude uint64) (bool, error) {
	id, ok := f.emails[email]
	return ok && id != exclude, nil
}

func (f fakeLookup) TaskTitleTaken(_ context.Context, contactID uint64, title string, exclude uint64) (bool, error) {
	id, ok := f.titles[contactID][title]
	return ok && id != exclude, nil
}

var today = time.Date(2030, 6, 15, 0, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func checkContact(t *testing.T, look Lookup, c Contact) *ValidationError {
	t.Helper()
	verr := &ValidationError{}
	if err := ContactRules.Run(context.Background(), RuleEnv{Today: today, Lookup: look}, &c, verr); err != nil {
		t.Fatalf("run rules: %v", err)
	}
	return verr
}

func checkTask(t *testing.T, look Lookup, tk Task) *ValidationError {
	t.Helper()
	verr := &ValidationError{}
	if err := TaskRules.Run(context.Background(), RuleEnv{Today: today, Lookup: look}, &tk, verr); err != nil {
		t.Fatalf("run rules: %v", err)
	}
	return verr
}

func TestContactFieldRules(t *testing.T) {
	cases := []struct {
		name  string
		c     Contact
		field string
	}{
		{"name length 2", Contact{FullName: "Al", Status: StatusActive}, "full_name"},
		{"name blank", Contact{FullName: "", Status: StatusActive}, "full_name"},
		{"name too long", Contact{FullName: strings.Repeat("a", 256), Status: StatusActive}, "full_name"},
		{"phone letters", Contact{FullName: "Amr", Phone: ptr("abc123"), Status: StatusActive}, "phone"},
		{"phone inner plus", Contact{FullName: "Amr", Phone: ptr("96+2"), Status: StatusActive}, "phone"},
		{"phone too long", Contact{FullName: "Amr", Phone: ptr("+" + strings.Repeat("1", 20)), Status: StatusActive}, "phone"},
		{"email", Contact{FullName: "Amr", Email: ptr("not-an-email"), Status: StatusActive}, "email"},
		{"status", Contact{FullName: "Amr", Status: "archived"}, "status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verr := checkContact(t, fakeLookup{}, tc.c)
			if len(verr.Fields[tc.field]) == 0 {
				t.Fatalf("expected %s error, got %v", tc.field, verr.Fields)
			}
			if len(verr.Fields) != 1 {
				t.Fatalf("expected only %s to fail, got %v", tc.field, verr.Fields)
			}
		})
	}
}

func TestContactValid(t *testing.T) {
	cases := []Contact{
		{FullName: "Amr", Status: StatusActive},
		{FullName: "Amr Ali", Phone: ptr("+962790000099"), Email: ptr("amr@x.com"), Status: StatusInactive},
		{FullName: "Zoë", Phone: ptr("0799999999"), Status: StatusActive},
	}
	for _, c := range cases {
		if verr := checkContact(t, fakeLookup{}, c); !verr.Empty() {
			t.Fatalf("%+v: unexpected errors %v", c, verr.Fields)
		}
	}
}

func TestContactNameLengthCountsCharacters(t *testing.T) {
	// Three characters, six bytes.
	if verr := checkContact(t, fakeLookup{}, Contact{FullName: "äöü", Status: StatusActive}); !verr.Empty() {
		t.Fatalf("unexpected errors %v", verr.Fields)
	}
	// Surrounding spaces count.
	if verr := checkContact(t, fakeLookup{}, Contact{FullName: " a ", Status: StatusActive}); !verr.Empty() {
		t.Fatalf("unexpected errors %v", verr.Fields)
	}
}

func TestContactUniqueness(t *testing.T) {
	look := fakeLookup{
		phones: map[string]uint64{"+962790000099": 1},
		emails: map[string]uint64{"amr@x.com": 1},
	}

	verr := checkContact(t, look, Contact{FullName: "Other", Phone: ptr("+962790000099"), Email: ptr("amr@x.com"), Status: StatusActive})
	if len(verr.Fields["phone"]) == 0 || len(verr.Fields["email"]) == 0 {
		t.Fatalf("expected phone and email conflicts, got %v", verr.Fields)
	}

	// The record itself is excluded on update.
	verr = checkContact(t, look, Contact{ID: 1, FullName: "Amr Ali", Phone: ptr("+962790000099"), Email: ptr("amr@x.com"), Status: StatusActive})
	if !verr.Empty() {
		t.Fatalf("self should not conflict, got %v", verr.Fields)
	}
}

func TestStoreRulesSkippedAfterFieldFailure(t *testing.T) {
	look := fakeLookup{emails: map[string]uint64{"amr@x.com": 1}}
	verr := checkContact(t, look, Contact{FullName: "Al", Email: ptr("amr@x.com"), Status: StatusActive})
	if _, ok := verr.Fields["email"]; ok {
		t.Fatalf("uniqueness should not run when a field rule failed: %v", verr.Fields)
	}
}

func TestTaskDueDate(t *testing.T) {
	look := fakeLookup{contacts: map[uint64]bool{1: true}}

	yesterday := today.AddDate(0, 0, -1)
	verr := checkTask(t, look, Task{ContactID: 1, Title: "Call", DueDate: &yesterday, Priority: PriorityMedium, dueSubmitted: true})
	if got := verr.Fields["due_date"]; len(got) != 1 || got[0] != msgPastDue {
		t.Fatalf("due_date errors = %v", got)
	}

	// A stored date that has passed is left alone when the write does not touch it.
	if verr := checkTask(t, look, Task{ID: 5, ContactID: 1, Title: "Call", DueDate: &yesterday, Priority: PriorityMedium}); !verr.Empty() {
		t.Fatalf("stored past due date should pass, got %v", verr.Fields)
	}

	sameDay := today.Add(15 * time.Hour)
	if verr := checkTask(t, look, Task{ContactID: 1, Title: "Call", DueDate: &sameDay, Priority: PriorityMedium, dueSubmitted: true}); !verr.Empty() {
		t.Fatalf("today should pass, got %v", verr.Fields)
	}
	if verr := checkTask(t, look, Task{ContactID: 1, Title: "Call", Priority: PriorityMedium}); !verr.Empty() {
		t.Fatalf("no due date should pass, got %v", verr.Fields)
	}
}

func TestTaskRules(t *testing.T) {
	look := fakeLookup{
		contacts: map[uint64]bool{1: true, 2: true},
		titles:   map[uint64]map[string]uint64{1: {"Send invoice": 10}},
	}

	cases := []struct {
		name  string
		task  Task
		field string
	}{
		{"short title", Task{ContactID: 1, Title: "AB", Priority: PriorityLow}, "title"},
		{"bad priority", Task{ContactID: 1, Title: "Call", Priority: "urgent"}, "priority"},
		{"missing contact", Task{ContactID: 9999, Title: "Call", Priority: PriorityLow}, "contact"},
		{"duplicate title", Task{ContactID: 1, Title: "Send invoice", Priority: PriorityLow}, NonFieldErrors},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verr := checkTask(t, look, tc.task)
			if len(verr.Fields[tc.field]) == 0 {
				t.Fatalf("expected %s error, got %v", tc.field, verr.Fields)
			}
		})
	}

	ok := []Task{
		{ContactID: 2, Title: "Send invoice", Priority: PriorityHigh},
		{ID: 10, ContactID: 1, Title: "Send invoice", Priority: PriorityHigh},
		{ContactID: 1, Title: "send invoice", Priority: PriorityHigh},
	}
	for _, tk := range ok {
		if verr := checkTask(t, look, tk); !verr.Empty() {
			t.Fatalf("%+v: unexpected errors %v", tk, verr.Fields)
		}
	}
}

func TestMergeContact(t *testing.T) {
	base := Contact{ID: 4, FullName: "Amr Ali", Phone: ptr("+1"), Email: ptr("a@b.co"), Status: StatusInactive}

	verr := &ValidationError{}
	c := MergeContact(base, ContactInput{Phone: Some(""), Email: Null[string]()}, Partial, verr)
	if !verr.Empty() {
		t.Fatalf("unexpected errors %v", verr.Fields)
	}
	if c.Phone != nil || c.Email != nil {
		t.Fatalf("expected phone and email cleared, got %v %v", c.Phone, c.Email)
	}
	if c.FullName != "Amr Ali" || c.Status != StatusInactive || c.ID != 4 {
		t.Fatalf("unexpected merge result %+v", c)
	}

	verr = &ValidationError{}
	c = MergeContact(Contact{}, ContactInput{}, Full, verr)
	if got := verr.Fields["full_name"]; len(got) != 1 || got[0] != msgRequired {
		t.Fatalf("full_name errors = %v", got)
	}
	if c.Status != StatusActive {
		t.Fatalf("status default = %q", c.Status)
	}
}

func TestMergeTask(t *testing.T) {
	verr := &ValidationError{}
	tk := MergeTask(Task{}, TaskInput{Title: Some("Call back")}, Full, verr)
	if got := verr.Fields["contact"]; len(got) != 1 || got[0] != msgRequired {
		t.Fatalf("contact errors = %v", got)
	}
	if tk.Priority != PriorityMedium || tk.IsDone {
		t.Fatalf("defaults not applied: %+v", tk)
	}

	verr = &ValidationError{}
	MergeTask(Task{}, TaskInput{Contact: Some[uint64](1), Title: Some("Call"), DueDate: Some("15/06/2030")}, Full, verr)
	if got := verr.Fields["due_date"]; len(got) != 1 || got[0] != msgDateFmt {
		t.Fatalf("due_date errors = %v", got)
	}

	due := today
	base := Task{ID: 3, ContactID: 1, Title: "Call", DueDate: &due, Priority: PriorityHigh}
	verr = &ValidationError{}
	tk = MergeTask(base, TaskInput{IsDone: Some(true), DueDate: Null[string]()}, Partial, verr)
	if !verr.Empty() {
		t.Fatalf("unexpected errors %v", verr.Fields)
	}
	if !tk.IsDone || tk.DueDate != nil || tk.Title != "Call" || tk.Priority != PriorityHigh {
		t.Fatalf("unexpected merge result %+v", tk)
	}
}

func TestOptionalUnmarshal(t *testing.T) {
	var in ContactInput
	if err := in.FullName.UnmarshalJSON([]byte(`"Amr"`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := in.Email.UnmarshalJSON([]byte(`null`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !in.FullName.Set || in.FullName.Null || in.FullName.Value != "Amr" {
		t.Fatalf("full_name = %+v", in.FullName)
	}
	if !in.Email.Set || !in.Email.Null {
		t.Fatalf("email = %+v", in.Email)
	}
	if in.Phone.Set {
		t.Fatal("phone should be unset")
	}
}

func TestWrongJSONTypePerField(t *testing.T) {
	var in TaskInput
	if err := sonic.ConfigStd.Unmarshal([]byte(`{"contact":"abc","title":"Call","is_done":"yes","due_date":20300615}`), &in); err != nil {
		t.Fatalf("decode should not fail on field types: %v", err)
	}
	if !in.Contact.Invalid || !in.IsDone.Invalid || !in.DueDate.Invalid || in.Title.Invalid {
		t.Fatalf("unexpected input %+v", in)
	}

	verr := &ValidationError{}
	MergeTask(Task{}, in, Full, verr)
	want := map[string]string{"contact": msgPKType, "is_done": msgBool, "due_date": msgDateFmt}
	for field, msg := range want {
		if got := verr.Fields[field]; len(got) != 1 || got[0] != msg {
			t.Errorf("%s errors = %v, want [%s]", field, got, msg)
		}
	}
	if _, ok := verr.Fields["title"]; ok {
		t.Errorf("title should be accepted, got %v", verr.Fields["title"])
	}

	var cin ContactInput
	if err := sonic.ConfigStd.Unmarshal([]byte(`{"full_name":42,"email":["a@b.co"]}`), &cin); err != nil {
		t.Fatalf("decode: %v", err)
	}
	verr = &ValidationError{}
	MergeContact(Contact{}, cin, Full, verr)
	if len(verr.Fields["full_name"]) != 1 || len(verr.Fields["email"]) != 1 {
		t.Fatalf("contact errors = %v", verr.Fields)
	}
}
