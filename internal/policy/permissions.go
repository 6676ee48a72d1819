package policy

import "github.com/deskline/helpdesk-service/internal/domain"

// Capability names a system-wide action a role may perform.
type Capability string

const (
	ViewAllTickets     Capability = "VIEW_ALL_TICKETS"
	ViewOwnTickets     Capability = "VIEW_OWN_TICKETS"
	CreateTicket       Capability = "CREATE_TICKET"
	UpdateTicket       Capability = "UPDATE_TICKET"
	DeleteTicket       Capability = "DELETE_TICKET"
	AssignTicket       Capability = "ASSIGN_TICKET"
	SelfAssignTicket   Capability = "SELF_ASSIGN_TICKET"
	ManageUsers        Capability = "MANAGE_USERS"
	ViewUsers          Capability = "VIEW_USERS"
	ViewCustomers      Capability = "VIEW_CUSTOMERS"
	CreateResponse     Capability = "CREATE_RESPONSE"
	CreateInternalNote Capability = "CREATE_INTERNAL_NOTE"
	GenerateReports    Capability = "GENERATE_REPORTS"
)

type capabilitySet map[Capability]struct{}

func capabilities(caps ...Capability) capabilitySet {
	set := make(capabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

var rolePermissions = map[domain.Role]capabilitySet{
	domain.RoleAdmin: capabilities(
		ViewAllTickets, ViewOwnTickets, CreateTicket, UpdateTicket, DeleteTicket,
		AssignTicket, ManageUsers, ViewUsers, ViewCustomers,
		CreateResponse, CreateInternalNote, GenerateReports,
	),
	domain.RoleSupervisor: capabilities(
		ViewAllTickets, ViewOwnTickets, CreateTicket, UpdateTicket,
		AssignTicket, ViewUsers, ViewCustomers,
		CreateResponse, CreateInternalNote,
	),
	domain.RoleAgent: capabilities(
		ViewOwnTickets, UpdateTicket, SelfAssignTicket, ViewCustomers,
		CreateResponse, CreateInternalNote,
	),
	domain.RoleCustomer: capabilities(
		ViewOwnTickets, CreateTicket, CreateResponse,
	),
}

// HasPermission reports whether role holds capability. Unknown roles hold nothing.
func HasPermission(role domain.Role, capability Capability) bool {
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = set[capability]
	return ok
}

// Capabilities lists the capabilities held by role in declaration order.
func Capabilities(role domain.Role) []Capability {
	out := make([]Capability, 0, len(allCapabilities))
	for _, c := range allCapabilities {
		if HasPermission(role, c) {
			out = append(out, c)
		}
	}
	return out
}

var allCapabilities = []Capability{
	ViewAllTickets, ViewOwnTickets, CreateTicket, UpdateTicket, DeleteTicket,
	AssignTicket, SelfAssignTicket, ManageUsers, ViewUsers, ViewCustomers,
	CreateResponse, CreateInternalNote, GenerateReports,
}
