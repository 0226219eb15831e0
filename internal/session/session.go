package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/bcinsights/bcinsights/internal/filter"
)

// Session is the navigation state of one dashboard user. It is owned by the
// caller and passed explicitly; nothing here is process-wide.
type Session struct {
	ID        string           `json:"id"`
	Page      View             `json:"page"`
	ActiveTab View             `json:"activeTab,omitempty"`
	Selection filter.Selection `json:"selection"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// New returns a session on the landing page.
func New(now time.Time) Session {
	return Session{
		ID:        uuid.NewString(),
		Page:      ViewHome,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Navigate moves the session to view. Going Home resets the session to its
// landing state: tab cleared and selection dropped.
func (s Session) Navigate(view View, now time.Time) Session {
	if view == ViewDashboard {
		view = ViewDemographics
	}
	s.UpdatedAt = now
	if view == ViewHome {
		s.Page = ViewHome
		s.ActiveTab = ""
		s.Selection = filter.Selection{}
		return s
	}
	s.Page = view
	s.ActiveTab = view
	return s
}

// WithSelection records the filters last applied in this session.
func (s Session) WithSelection(sel filter.Selection, now time.Time) Session {
	s.Selection = sel.Clone()
	s.UpdatedAt = now
	return s
}

func (s Session) clone() Session {
	s.Selection = s.Selection.Clone()
	return s
}
