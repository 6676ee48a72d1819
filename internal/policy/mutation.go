package policy

import (
	"strings"
	"time"

	"github.com/deskline/helpdesk-service/internal/domain"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// AssigneeChange carries an optional assignment edit. Set distinguishes an
// explicit null (unassign) from an absent field.
type AssigneeChange struct {
	Set    bool
	UserID *string
}

// TicketPatch lists the fields a staff caller asked to change.
type TicketPatch struct {
	Title       *string
	Description *string
	Category    *domain.TicketCategory
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	Assignee    AssigneeChange
}

// UpdatePlan is the outcome of applying a patch to a ticket snapshot.
type UpdatePlan struct {
	// Ticket holds the fields to persist.
	Ticket domain.Ticket
	// ExpectedStatus and ExpectedAssignee are the snapshot the plan was
	// computed from; the write must only land if they still hold.
	ExpectedStatus   domain.TicketStatus
	ExpectedAssignee *string
	// AssigneeChanged is true when the write moves the assignment.
	AssigneeChanged bool
	// Claim is true for an agent taking an unclaimed ticket.
	Claim bool
}

// PlanUpdate validates patch for actor against current and returns the
// resulting ticket. It does not check that a new assignee exists.
func PlanUpdate(actor *domain.Principal, current domain.Ticket, patch TicketPatch, now time.Time) (UpdatePlan, error) {
	role := actor.Role()
	if !HasPermission(role, UpdateTicket) {
		return UpdatePlan{}, apperrors.NewForbidden("insufficient permissions to update tickets")
	}

	next := current
	plan := UpdatePlan{
		ExpectedStatus:   current.Status,
		ExpectedAssignee: current.AssignedToID,
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return UpdatePlan{}, apperrors.NewValidationError("title cannot be empty", nil)
		}
		next.Title = title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		if description == "" {
			return UpdatePlan{}, apperrors.NewValidationError("description cannot be empty", nil)
		}
		next.Description = description
	}
	if patch.Category != nil {
		if !patch.Category.Valid() {
			return UpdatePlan{}, apperrors.NewValidationError("invalid category", map[string]any{"category": *patch.Category})
		}
		next.Category = *patch.Category
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return UpdatePlan{}, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *patch.Priority})
		}
		next.Priority = *patch.Priority
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return UpdatePlan{}, apperrors.NewValidationError("invalid status", map[string]any{"status": *patch.Status})
	}

	if patch.Assignee.Set {
		changed, claim, err := checkAssignment(actor, &current, patch.Assignee.UserID)
		if err != nil {
			return UpdatePlan{}, err
		}
		if changed {
			plan.AssigneeChanged = true
			plan.Claim = claim
			next.AssignedToID = cloneString(patch.Assignee.UserID)
			if next.AssignedToID != nil {
				stamp := now
				next.AssignedAt = &stamp
				if patch.Status == nil && current.Status == domain.TicketStatusOpen {
					next.Status = domain.TicketStatusInProgress
				}
			} else {
				next.AssignedAt = nil
			}
		}
	}

	if patch.Status != nil {
		next.Status = *patch.Status
		if next.Status.Terminal() {
			stamp := now
			next.ClosedAt = &stamp
		} else {
			next.ClosedAt = nil
		}
	}

	plan.Ticket = next
	return plan, nil
}

// checkAssignment applies the role rules for moving a ticket's assignee.
func checkAssignment(actor *domain.Principal, current *domain.Ticket, target *string) (changed, claim bool, err error) {
	role := actor.Role()
	self := actor.UserID()

	if sameAssignee(current.AssignedToID, target) {
		return false, false, nil
	}

	switch {
	case HasPermission(role, AssignTicket):
		return true, false, nil
	case HasPermission(role, SelfAssignTicket):
		if target != nil && *target != self {
			return false, false, apperrors.NewValidationError("agents can only assign tickets to themselves", nil)
		}
		if target == nil {
			if !current.AssignedTo(self) {
				return false, false, apperrors.NewForbidden("agents can only release their own tickets")
			}
			return true, false, nil
		}
		if !current.Unclaimed() {
			return false, false, apperrors.NewConflict("ticket is no longer open and unassigned", map[string]any{"ticketId": current.ID})
		}
		return true, true, nil
	default:
		return false, false, apperrors.NewForbidden("insufficient permissions to assign tickets")
	}
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
