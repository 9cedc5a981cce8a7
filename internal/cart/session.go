package cart

import (
	"net/http"

	"github.com/google/uuid"
)

const SessionHeader = "X-Session-ID"

// SessionID returns the cart session of r, minting a new one when the
// client did not send any. The id is always echoed back on w.
func SessionID(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(SessionHeader, id)
	return id
}
