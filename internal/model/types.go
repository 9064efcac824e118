package model

import "slices"

// Principal is an opaque caller identity supplied by the transport layer.
// It is only ever compared for equality.
type Principal string

// Note is the sole persisted entity.
type Note struct {
	ID         uint32      `json:"id"`
	Content    string      `json:"content"`
	Owner      Principal   `json:"owner"`
	SharedWith []Principal `json:"shared_with"`
}

// IsOwner reports whether p created the note.
func (n Note) IsOwner(p Principal) bool {
	return n.Owner == p
}

// IsSharedWith reports whether p appears in the sharing list.
func (n Note) IsSharedWith(p Principal) bool {
	return slices.Contains(n.SharedWith, p)
}

// CanRead reports whether p belongs to {owner} ∪ shared_with.
func (n Note) CanRead(p Principal) bool {
	return n.IsOwner(p) || n.IsSharedWith(p)
}

// Clone returns a deep copy so callers never alias the sharing list.
func (n Note) Clone() Note {
	c := n
	c.SharedWith = make([]Principal, len(n.SharedWith))
	copy(c.SharedWith, n.SharedWith)
	return c
}

// Equal compares all fields. A nil and an empty sharing list are equal.
func (n Note) Equal(other Note) bool {
	return n.ID == other.ID &&
		n.Content == other.Content &&
		n.Owner == other.Owner &&
		slices.Equal(n.SharedWith, other.SharedWith)
}
