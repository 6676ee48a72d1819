package domain

import "time"

// Response is an append-only message on a ticket thread.
type Response struct {
	ID         string
	TicketID   string
	UserID     string
	Message    string
	IsInternal bool
	CreatedAt  time.Time
}

// ResponseView is a response joined with its author.
type ResponseView struct {
	Response
	AuthorName string
	AuthorRole Role
}
