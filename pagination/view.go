// Package pagination serves items through fixed ranked views with opaque
// keyset cursors.
package pagination

import (
	"errors"
	"fmt"
	"strings"

	"github.com/docutag/curator/models"
)

var (
	// ErrUnknownView is returned for view names other than browse, recent, org.
	ErrUnknownView = errors.New("unknown view")
	// ErrInvalidThreshold is returned for a threshold outside [0, 1].
	ErrInvalidThreshold = errors.New("invalid threshold")
)

// View is a fixed ordering and filter over items.
type View string

const (
	// ViewBrowse lists active items by pin, base score, then recency.
	ViewBrowse View = "browse"
	// ViewRecent lists every item newest first.
	ViewRecent View = "recent"
	// ViewOrg lists active items above an org-score threshold.
	ViewOrg View = "org"
)

// DefaultOrgThreshold is the org view's minimum org score.
const DefaultOrgThreshold = 0.6

// ParseView validates a view name. An empty name selects browse.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewBrowse, nil
	case ViewBrowse, ViewRecent, ViewOrg:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// CursorFor builds the view's cursor from the last row of a page.
func CursorFor(view View, it models.Item) Cursor {
	switch view {
	case ViewRecent:
		return RecentCursor{CreatedAt: it.CreatedAt}
	case ViewOrg:
		return OrgCursor{OrgScore: it.OrgScore, CreatedAt: it.CreatedAt}
	default:
		return BrowseCursor{Pin: it.Pin, BaseScore: it.BaseScore, CreatedAt: it.CreatedAt}
	}
}

// Less reports whether a sorts before b in view.
func Less(view View, a, b models.Item) bool {
	switch view {
	case ViewRecent:
		return a.CreatedAt.After(b.CreatedAt)
	case ViewOrg:
		if a.OrgScore != b.OrgScore {
			return a.OrgScore > b.OrgScore
		}
		return a.CreatedAt.After(b.CreatedAt)
	default:
		if a.Pin != b.Pin {
			return a.Pin > b.Pin
		}
		if a.BaseScore != b.BaseScore {
			return a.BaseScore > b.BaseScore
		}
		return a.CreatedAt.After(b.CreatedAt)
	}
}

// Follows reports whether it lies strictly after the cursor position.
func Follows(c Cursor, it models.Item) bool {
	switch c := c.(type) {
	case BrowseCursor:
		if it.Pin != c.Pin {
			return it.Pin < c.Pin
		}
		if it.BaseScore != c.BaseScore {
			return it.BaseScore < c.BaseScore
		}
		return it.CreatedAt.Before(c.CreatedAt)
	case RecentCursor:
		return it.CreatedAt.Before(c.CreatedAt)
	case OrgCursor:
		if it.OrgScore != c.OrgScore {
			return it.OrgScore < c.OrgScore
		}
		return it.CreatedAt.Before(c.CreatedAt)
	}
	return true
}
