package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"minicrm/internal/auth"
	"minicrm/internal/idempotency"

	"github.com/sirupsen/logrus"
)

const idemFinishTimeout = 2 * time.Second

// createOnce runs create at most once per (principal, resource, Idempotency-Key).
// A retry after success replays the stored record with 200; a retry while the
// first attempt is running gets 409. Without a key or a store it just creates.
func createOnce(
	w http.ResponseWriter,
	r *http.Request,
	store *idempotency.Store,
	log logrus.FieldLogger,
	resource string,
	create func() (uint64, any, error),
	replay func(id uint64) (any, error),
) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if store == nil || key == "" {
		if _, body, err := create(); err != nil {
			writeError(w, r, log, err)
		} else {
			writeJSON(w, http.StatusCreated, body)
		}
		return
	}

	uid, _ := auth.UserIDFromContext(r.Context())
	scope := resource + ":" + strconv.FormatUint(uid, 10)
	ctx := r.Context()

	claim, err := store.Claim(ctx, scope, key)
	if err != nil {
		writeError(w, r, log, err)
		return
	}

	switch claim.State {
	case idempotency.InFlight:
		writeDetail(w, http.StatusConflict, "A request with this Idempotency-Key is already in progress.")
		return
	case idempotency.Completed:
		body, err := replay(claim.ResourceID)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		w.Header().Set("Idempotent-Replayed", "true")
		writeJSON(w, http.StatusOK, body)
		return
	}

	id, body, err := create()

	// The claim is settled even when the client has gone away; a stuck
	// "pending" key would turn every retry into a 409 until it expires.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), idemFinishTimeout)
	defer cancel()

	if err != nil {
		if rerr := store.Release(finishCtx, scope, key); rerr != nil {
			requestLog(log, r).WithError(rerr).Warn("release idempotency key")
		}
		writeError(w, r, log, err)
		return
	}
	if err := store.Complete(finishCtx, scope, key, id); err != nil {
		requestLog(log, r).WithError(err).Warn("complete idempotency key")
	}
	writeJSON(w, http.StatusCreated, body)
}
