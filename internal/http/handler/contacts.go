package handler

import (
	"net/http"

	"minicrm/internal/crm"
	"minicrm/internal/idempotency"

	"github.com/sirupsen/logrus"
)

type ContactHandler struct {
	Svc  *crm.Service
	Idem *idempotency.Store
	Log  logrus.FieldLogger
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := crm.ParseContactQuery(r.URL.Query(), h.Svc.Paging)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	page, err := h.Svc.ListContacts(r.Context(), q)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toListDTO(r, page, toContactDTO))
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.GetContact(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactDTO(c))
}

func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in crm.ContactInput
	if !decodeJSON(w, r, &in) {
		return
	}
	createOnce(w, r, h.Idem, h.Log, "contacts",
		func() (uint64, any, error) {
			c, err := h.Svc.CreateContact(r.Context(), in)
			return c.ID, toContactDTO(c), err
		},
		func(id uint64) (any, error) {
			c, err := h.Svc.GetContact(r.Context(), id)
			return toContactDTO(c), err
		},
	)
}

// Update serves both PATCH and PUT; PUT requires full_name in the body.
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in crm.ContactInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.Svc.UpdateContact(r.Context(), id, in, writeMode(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactDTO(c))
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.DeleteContact(r.Context(), id); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
