package domain

// Principal is the caller resolved from the identity store on the current
// request. Customer is set only for CUSTOMER users once linked.
type Principal struct {
	User     *User
	Customer *Customer
}

// Role returns the resolved role, or the empty role when unresolved.
func (p *Principal) Role() Role {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.Role
}

// UserID returns the resolved user id.
func (p *Principal) UserID() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.ID
}
