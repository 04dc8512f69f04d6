package handler

import (
	"net/http"

	"minicrm/internal/crm"
	"minicrm/internal/idempotency"

	"github.com/sirupsen/logrus"
)

type TaskHandler struct {
	Svc  *crm.Service
	Idem *idempotency.Store
	Log  logrus.FieldLogger
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := crm.ParseTaskQuery(r.URL.Query(), h.Svc.Paging)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	page, err := h.Svc.ListTasks(r.Context(), q)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toListDTO(r, page, toTaskDTO))
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.Svc.GetTask(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTO(t))
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in crm.TaskInput
	if !decodeJSON(w, r, &in) {
		return
	}
	createOnce(w, r, h.Idem, h.Log, "tasks",
		func() (uint64, any, error) {
			t, err := h.Svc.CreateTask(r.Context(), in)
			return t.ID, toTaskDTO(t), err
		},
		func(id uint64) (any, error) {
			t, err := h.Svc.GetTask(r.Context(), id)
			return toTaskDTO(t), err
		},
	)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in crm.TaskInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := h.Svc.UpdateTask(r.Context(), id, in, writeMode(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTO(t))
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.DeleteTask(r.Context(), id); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
