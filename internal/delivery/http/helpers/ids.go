package helpers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// PathID returns the named path value when it is a well-formed uuid. Otherwise it writes
// 404 not_found and returns false; a malformed id cannot name an existing resource.
func PathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := strings.TrimSpace(r.PathValue(name))
	if _, err := uuid.Parse(id); err != nil {
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
		return "", false
	}
	return id, true
}

// ValidID reports whether id is a well-formed uuid.
func ValidID(id string) bool {
	_, err := uuid.Parse(strings.TrimSpace(id))
	return err == nil
}
