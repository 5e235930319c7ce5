package document

import "path"

// Scoped wraps a Provider with an owner id so that every document a caller
// touches lives under that user's namespace. Call sites never concatenate
// user paths by hand.
type Scoped struct {
	Provider
	ownerID string
}

// NewScoped returns a view of the provider rooted at users/{ownerID}.
func NewScoped(p Provider, ownerID string) *Scoped {
	return &Scoped{Provider: p, ownerID: ownerID}
}

// OwnerID returns the user id this view is scoped to.
func (s *Scoped) OwnerID() string {
	return s.ownerID
}

// Collection returns the full prefix for one of the owner's collections.
func (s *Scoped) Collection(name string) string {
	return path.Join("users", s.ownerID, name)
}

// Doc returns the full path for a document in one of the owner's collections.
func (s *Scoped) Doc(collection, id string) string {
	return path.Join("users", s.ownerID, collection, id)
}
