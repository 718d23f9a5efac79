package domain

import (
	"bytes"
	"encoding/json"
)

// Membership is an account's family binding: either Unbound or BoundTo a family.
// The zero value is Unbound.
type Membership struct {
	familyID string
}

// Unbound returns the membership of an account that has not created or joined a family.
func Unbound() Membership {
	return Membership{}
}

// BoundTo returns a membership in the given family. An empty id yields Unbound.
func BoundTo(familyID string) Membership {
	return Membership{familyID: familyID}
}

// FamilyID returns the bound family id and whether the membership is bound.
func (m Membership) FamilyID() (string, bool) {
	return m.familyID, m.familyID != ""
}

// IsBound reports whether the account belongs to a family.
func (m Membership) IsBound() bool {
	return m.familyID != ""
}

// Is reports whether the membership is bound to exactly familyID.
func (m Membership) Is(familyID string) bool {
	return m.familyID != "" && m.familyID == familyID
}

func (m Membership) String() string {
	if m.familyID == "" {
		return "unbound"
	}
	return m.familyID
}

// MarshalJSON encodes Unbound as null and a bound membership as the family id.
func (m Membership) MarshalJSON() ([]byte, error) {
	if m.familyID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(m.familyID)
}

func (m *Membership) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Unbound()
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	*m = BoundTo(id)
	return nil
}
