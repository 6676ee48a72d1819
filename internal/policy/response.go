package policy

import "github.com/deskline/helpdesk-service/internal/domain"

// EffectiveInternal downgrades an internal flag the author may not set.
func EffectiveInternal(role domain.Role, requested bool) bool {
	return requested && HasPermission(role, CreateInternalNote)
}

// AcceptsResponses reports whether the ticket may receive new responses.
func AcceptsResponses(t *domain.Ticket) bool {
	return t != nil && !t.Status.Terminal()
}

// AdvancesTicket reports whether a new response moves the ticket from OPEN
// to IN_PROGRESS.
func AdvancesTicket(t *domain.Ticket, isInternal bool) bool {
	return !isInternal && t != nil && t.Status == domain.TicketStatusOpen
}

// NotifiesCustomer reports whether a response should be emailed to the
// ticket's customer.
func NotifiesCustomer(authorRole domain.Role, isInternal bool) bool {
	return !isInternal && authorRole.IsStaff()
}

// CanSeeInternal reports whether role may read internal notes.
func CanSeeInternal(role domain.Role) bool {
	return role.Valid() && role.IsStaff()
}

// VisibleResponses drops internal notes the reader may not see.
func VisibleResponses(role domain.Role, responses []domain.ResponseView) []domain.ResponseView {
	if CanSeeInternal(role) {
		return responses
	}
	out := make([]domain.ResponseView, 0, len(responses))
	for _, r := range responses {
		if !r.IsInternal {
			out = append(out, r)
		}
	}
	return out
}
