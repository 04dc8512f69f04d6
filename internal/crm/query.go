package crm

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidPage is returned when the requested page lies past the last one.
var ErrInvalidPage = fmt.Errorf("invalid page: %w", ErrNotFound)

// Paging holds the page size policy.
type Paging struct {
	Default int
	Max     int
}

var DefaultPaging = Paging{Default: 10, Max: 100}

type PageRequest struct {
	Number int
	Size   int
}

func (p PageRequest) offset() int {
	return (p.Number - 1) * p.Size
}

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Count   int64
	Request PageRequest
	Items   []T
}

func (p Page[T]) HasNext() bool {
	return int64(p.Request.Number*p.Request.Size) < p.Count
}

func (p Page[T]) HasPrevious() bool {
	return p.Request.Number > 1
}

// ParsePage reads page and page_size. Malformed values fall back to the
// defaults and oversized pages are clamped.
func (pg Paging) ParsePage(v url.Values) PageRequest {
	req := PageRequest{Number: 1, Size: pg.Default}
	if n, err := strconv.Atoi(strings.TrimSpace(v.Get("page"))); err == nil && n > 0 {
		req.Number = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v.Get("page_size"))); err == nil && n > 0 {
		req.Size = min(n, pg.Max)
	}
	return req
}

// checkPage mirrors page-number pagination: page 1 always exists, later pages
// must start inside the result set.
func checkPage(total int64, p PageRequest) error {
	if p.Number > 1 && int64(p.offset()) >= total {
		return ErrInvalidPage
	}
	return nil
}

type ContactOrder struct {
	Column string
	Desc   bool
}

var contactOrderings = map[string]ContactOrder{
	"full_name":   {Column: "full_name"},
	"-full_name":  {Column: "full_name", Desc: true},
	"created_at":  {Column: "created_at"},
	"-created_at": {Column: "created_at", Desc: true},
}

type ContactQuery struct {
	Search   string
	Status   Status
	Ordering ContactOrder
	Page     PageRequest
}

func ParseContactQuery(v url.Values, pg Paging) (ContactQuery, error) {
	q := ContactQuery{
		Search:   strings.TrimSpace(v.Get("search")),
		Ordering: contactOrderings["-created_at"],
		Page:     pg.ParsePage(v),
	}
	verr := &ValidationError{}

	if s := strings.TrimSpace(v.Get("status")); s != "" {
		q.Status = Status(s)
		if !q.Status.Valid() {
			verr.Add("status", selectValidChoice(s))
		}
	}
	// Unknown orderings are ignored rather than rejected.
	if o, ok := contactOrderings[strings.TrimSpace(v.Get("ordering"))]; ok {
		q.Ordering = o
	}
	return q, verr.Err()
}

func (q ContactQuery) scope(db *gorm.DB) *gorm.DB {
	if q.Search != "" {
		p := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		db = db.Where(`(LOWER(contacts.full_name) LIKE ? ESCAPE '\' OR LOWER(contacts.phone) LIKE ? ESCAPE '\' OR LOWER(contacts.email) LIKE ? ESCAPE '\')`, p, p, p)
	}
	if q.Status != "" {
		db = db.Where("contacts.status = ?", q.Status)
	}
	return db
}

func (q ContactQuery) order(db *gorm.DB) *gorm.DB {
	return db.
		Order(clause.OrderByColumn{Column: clause.Column{Table: "contacts", Name: q.Ordering.Column}, Desc: q.Ordering.Desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "contacts", Name: "id"}, Desc: true})
}

type TaskQuery struct {
	ContactID *uint64
	IsDone    *bool
	Priority  Priority
	DueFrom   *time.Time
	DueTo     *time.Time
	Page      PageRequest
}

func ParseTaskQuery(v url.Values, pg Paging) (TaskQuery, error) {
	q := TaskQuery{Page: pg.ParsePage(v)}
	verr := &ValidationError{}

	if s := strings.TrimSpace(v.Get("contact_id")); s != "" {
		if id, err := strconv.ParseUint(s, 10, 64); err != nil {
			verr.Add("contact_id", "Enter a number.")
		} else {
			q.ContactID = &id
		}
	}
	if s := strings.TrimSpace(v.Get("is_done")); s != "" {
		if b, ok := parseBoolParam(s); !ok {
			verr.Add("is_done", selectValidChoice(s))
		} else {
			q.IsDone = &b
		}
	}
	if s := strings.TrimSpace(v.Get("priority")); s != "" {
		q.Priority = Priority(s)
		if !q.Priority.Valid() {
			verr.Add("priority", selectValidChoice(s))
		}
	}
	for _, f := range []struct {
		key string
		dst **time.Time
	}{{"due_from", &q.DueFrom}, {"due_to", &q.DueTo}} {
		s := strings.TrimSpace(v.Get(f.key))
		if s == "" {
			continue
		}
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			verr.Add(f.key, "Enter a valid date.")
			continue
		}
		*f.dst = &d
	}
	return q, verr.Err()
}

func (q TaskQuery) scope(db *gorm.DB) *gorm.DB {
	if q.ContactID != nil {
		db = db.Where("tasks.contact_id = ?", *q.ContactID)
	}
	if q.IsDone != nil {
		db = db.Where("tasks.is_done = ?", *q.IsDone)
	}
	if q.Priority != "" {
		db = db.Where("tasks.priority = ?", q.Priority)
	}
	if q.DueFrom != nil {
		db = db.Where("tasks.due_date >= ?", *q.DueFrom)
	}
	if q.DueTo != nil {
		db = db.Where("tasks.due_date <= ?", *q.DueTo)
	}
	return db
}

func (q TaskQuery) order(db *gorm.DB) *gorm.DB {
	return db.Order("tasks.created_at DESC").Order("tasks.id DESC")
}

// withOpenTaskCounts joins a per-contact aggregate of undone tasks so the
// count arrives with each row in a single query.
func withOpenTaskCounts(db *gorm.DB) *gorm.DB {
	open := db.Session(&gorm.Session{NewDB: true}).
		Model(&Task{}).
		Select("contact_id, COUNT(*) AS open_tasks_count").
		Where("is_done = ?", false).
		Group("contact_id")

	return db.
		Select("contacts.*, COALESCE(oc.open_tasks_count, 0) AS open_tasks_count").
		Joins("LEFT JOIN (?) AS oc ON oc.contact_id = contacts.id", open)
}

// paginate counts the filtered rows, checks the page, then loads it.
func paginate[T any](db *gorm.DB, filter, order, load func(*gorm.DB) *gorm.DB, p PageRequest) (Page[T], error) {
	out := Page[T]{Request: p, Items: []T{}}

	var model T
	if err := db.Model(&model).Scopes(filter).Count(&out.Count).Error; err != nil {
		return out, fmt.Errorf("count: %w", err)
	}
	if err := checkPage(out.Count, p); err != nil {
		return out, err
	}

	q := db.Model(&model).Scopes(load, filter, order).Offset(p.offset()).Limit(p.Size)
	if err := q.Find(&out.Items).Error; err != nil {
		return out, fmt.Errorf("list: %w", err)
	}
	return out, nil
}

func noScope(db *gorm.DB) *gorm.DB { return db }

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func parseBoolParam(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

func selectValidChoice(v string) string {
	return fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", v)
}

// isNotFound folds gorm's miss into the package sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
