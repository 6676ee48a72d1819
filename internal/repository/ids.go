package repository

import "github.com/google/uuid"

func newID() string {
	return uuid.NewString()
}

// validID reports whether id can be compared against a UUID column. Other
// values cannot match any row and would make Postgres reject the query.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
