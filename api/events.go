package api

import (
	"net/http"
	"time"

	"github.com/xraph/bftrelay/event"
)

// queryTime parses an RFC 3339 query parameter. Absent yields nil.
func queryTime(r *http.Request, key string) (*time.Time, error) {
	v := queryParam(r, key)
	if v == "" {
		return nil, nil //nolint:nilnil // absent filter
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	opts := event.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
		Kind:   event.Kind(queryParam(r, "kind")),
	}
	if opts.Kind != "" && !opts.Kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown event kind")
		return
	}

	var err error
	if opts.From, err = queryTime(r, "from"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid from")
		return
	}
	if opts.To, err = queryTime(r, "to"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid to")
		return
	}

	events, err := h.relay.Events(r.Context(), opts)
	if err != nil {
		writeRelayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}
