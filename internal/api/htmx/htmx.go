package htmx

import (
	"net/http"
	"strings"
)

func IsRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}

// SetTrigger appends events to the HX-Trigger response header.
func SetTrigger(w http.ResponseWriter, events ...string) {
	if len(events) == 0 {
		return
	}
	existing := w.Header().Get("HX-Trigger")
	joined := strings.Join(events, ",")
	if existing != "" {
		joined = existing + "," + joined
	}
	w.Header().Set("HX-Trigger", joined)
}
