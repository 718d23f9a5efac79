package controllers

import (
	"net/http"

	"choretracker/internal/delivery/http/helpers"
	"choretracker/internal/delivery/http/middleware"
	"choretracker/internal/domain"
)

// callerClaims returns the verified claims set by RequireAuth, or writes 401.
func callerClaims(w http.ResponseWriter, r *http.Request) (domain.Claims, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims.UserID == "" {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "missing user context")
		return domain.Claims{}, false
	}
	return claims, true
}
