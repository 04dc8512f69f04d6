package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"minicrm/internal/crm"
)

type contactDTO struct {
	ID             uint64     `json:"id"`
	FullName       string     `json:"full_name"`
	Phone          *string    `json:"phone"`
	Email          *string    `json:"email"`
	Status         crm.Status `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	OpenTasksCount int64      `json:"open_tasks_count"`
}

func toContactDTO(c crm.Contact) contactDTO {
	return contactDTO{
		ID:             c.ID,
		FullName:       c.FullName,
		Phone:          c.Phone,
		Email:          c.Email,
		Status:         c.Status,
		CreatedAt:      c.CreatedAt,
		OpenTasksCount: c.OpenTasksCount,
	}
}

type taskDTO struct {
	ID        uint64       `json:"id"`
	Contact   uint64       `json:"contact"`
	Title     string       `json:"title"`
	DueDate   *string      `json:"due_date"`
	Priority  crm.Priority `json:"priority"`
	IsDone    bool         `json:"is_done"`
	CreatedAt time.Time    `json:"created_at"`
}

func toTaskDTO(t crm.Task) taskDTO {
	out := taskDTO{
		ID:        t.ID,
		Contact:   t.ContactID,
		Title:     t.Title,
		Priority:  t.Priority,
		IsDone:    t.IsDone,
		CreatedAt: t.CreatedAt,
	}
	if t.DueDate != nil {
		d := t.DueDate.Format("2006-01-02")
		out.DueDate = &d
	}
	return out
}

type listDTO[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func toListDTO[S, T any](r *http.Request, p crm.Page[S], conv func(S) T) listDTO[T] {
	out := listDTO[T]{Count: p.Count, Results: make([]T, 0, len(p.Items))}
	for _, it := range p.Items {
		out.Results = append(out.Results, conv(it))
	}
	if p.HasNext() {
		u := pageURL(r, p.Request.Number+1)
		out.Next = &u
	}
	if p.HasPrevious() {
		u := pageURL(r, p.Request.Number-1)
		out.Previous = &u
	}
	return out
}

// pageURL rebuilds the request URL pointing at page n. Page 1 drops the
// parameter entirely.
func pageURL(r *http.Request, n int) string {
	q := r.URL.Query()
	if n <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(n))
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}

	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	return u.String()
}
