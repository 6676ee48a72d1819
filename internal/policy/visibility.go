package policy

import "github.com/deskline/helpdesk-service/internal/domain"

// ScopeKind selects which tickets a caller may see.
type ScopeKind int

const (
	// ScopeNone denies everything; it is the zero value.
	ScopeNone ScopeKind = iota
	ScopeAll
	// ScopeAgent covers tickets assigned to UserID plus the unclaimed open queue.
	ScopeAgent
	// ScopeCustomer covers tickets owned by CustomerID.
	ScopeCustomer
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeAll:
		return "all"
	case ScopeAgent:
		return "agent"
	case ScopeCustomer:
		return "customer"
	default:
		return "none"
	}
}

// TicketScope is a declarative predicate over tickets. Repositories translate
// it into a query clause; Matches evaluates it against a single row.
type TicketScope struct {
	Kind       ScopeKind
	UserID     string
	CustomerID string
}

// ScopeFor derives the listing predicate for the caller. The boolean is false
// when no predicate applies, which callers must treat as a denial.
// CUSTOMER callers need a linked customer record before a scope exists.
func ScopeFor(p *domain.Principal) (TicketScope, bool) {
	if p == nil || p.User == nil || !p.User.Active {
		return TicketScope{}, false
	}
	role := p.User.Role
	switch {
	case HasPermission(role, ViewAllTickets):
		return TicketScope{Kind: ScopeAll}, true
	case role == domain.RoleAgent && HasPermission(role, ViewOwnTickets):
		return TicketScope{Kind: ScopeAgent, UserID: p.User.ID}, true
	case role == domain.RoleCustomer && HasPermission(role, ViewOwnTickets):
		if p.Customer == nil || p.Customer.ID == "" {
			return TicketScope{}, false
		}
		return TicketScope{Kind: ScopeCustomer, CustomerID: p.Customer.ID}, true
	}
	return TicketScope{}, false
}

// Matches evaluates the predicate against the ticket's current fields.
func (s TicketScope) Matches(t *domain.Ticket) bool {
	if t == nil {
		return false
	}
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeAgent:
		return s.UserID != "" && (t.AssignedTo(s.UserID) || t.Unclaimed())
	case ScopeCustomer:
		return s.CustomerID != "" && t.CustomerID == s.CustomerID
	default:
		return false
	}
}

// CanAccess is the point-access guard for a freshly read ticket. It shares
// its predicate with the listing scope so the two never disagree.
func CanAccess(p *domain.Principal, t *domain.Ticket) bool {
	scope, ok := ScopeFor(p)
	return ok && scope.Matches(t)
}

// RevealsMissing reports whether a missing ticket may be reported as absent
// rather than forbidden. Only callers who can see every ticket learn anything
// from a not-found answer.
func RevealsMissing(p *domain.Principal) bool {
	scope, ok := ScopeFor(p)
	return ok && scope.Kind == ScopeAll
}
