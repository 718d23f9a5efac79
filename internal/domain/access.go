package domain

import "errors"

// Authorize allows the caller to touch a resource owned by resourceFamilyID only when
// the caller is bound to a family and that family equals resourceFamilyID.
// The resource family must come from the store, never from request input.
func Authorize(c Claims, resourceFamilyID string) error {
	if resourceFamilyID == "" || !c.Family.Is(resourceFamilyID) {
		return ErrForbidden
	}
	return nil
}

// RequireFamily returns the caller's family id, or ErrNoFamily when the caller is unbound.
func RequireFamily(c Claims) (string, error) {
	id, ok := c.Family.FamilyID()
	if !ok {
		return "", ErrNoFamily
	}
	return id, nil
}

// RequireGlobalAdmin is the capability check for cross-family operations such as
// listing every family. It never consults family membership.
func RequireGlobalAdmin(c Claims) error {
	if !c.IsGlobalAdmin() {
		return ErrForbidden
	}
	return nil
}

// Conceal turns a denial on an existing resource into ErrNotFound so callers cannot
// learn whether ids exist in other families.
func Conceal(err error) error {
	if errors.Is(err, ErrForbidden) {
		return ErrNotFound
	}
	return err
}
