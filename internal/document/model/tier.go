package model

import "inkwell/pkg/httperr"

// Tier is the access level a principal holds on one document. Ordering
// matters: each tier may do everything the tiers below it may do.
type Tier int

const (
	TierNone Tier = iota
	TierViewer
	TierEditor
	TierOwner
)

func (t Tier) String() string {
	switch t {
	case TierOwner:
		return "owner"
	case TierEditor:
		return "editor"
	case TierViewer:
		return "viewer"
	default:
		return "none"
	}
}

func (t Tier) CanRead() bool  { return t >= TierViewer }
func (t Tier) CanWrite() bool { return t >= TierEditor }

// ParseTier accepts only the grantable tiers. Owner is assigned at creation
// and never granted; anything unrecognized is rejected rather than defaulted.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "editor":
		return TierEditor, nil
	case "viewer":
		return TierViewer, nil
	default:
		return TierNone, httperr.Invalid("invalid tier, must be editor or viewer")
	}
}

// TierOf derives the caller's tier from the document record itself. It is a
// pure function and is never cached on its own: it is always evaluated
// against the same snapshot that serves the content, so there is no window
// where stale permissions outlive the data they guard.
func TierOf(doc *Document, principal string) Tier {
	if doc == nil {
		return TierNone
	}
	if doc.Owner == principal {
		return TierOwner
	}
	for _, e := range doc.Editors {
		if e == principal {
			return TierEditor
		}
	}
	for _, v := range doc.Viewers {
		if v == principal {
			return TierViewer
		}
	}
	return TierNone
}
