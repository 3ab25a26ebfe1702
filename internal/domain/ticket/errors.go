package ticket

import "fmt"

// InvalidTicketError reports a ticket id that is blank, unknown, expired or
// of a kind other than the one expected. Expired tickets are treated as
// absent on read even before the sweeper removes them.
type InvalidTicketError struct {
	ID       string
	Expected Kind
	Reason   string
}

func (e *InvalidTicketError) Error() string {
	if e.Expected != "" {
		return fmt.Sprintf("invalid ticket %q (expected %s): %s", e.ID, e.Expected, e.Reason)
	}
	return fmt.Sprintf("invalid ticket %q: %s", e.ID, e.Reason)
}

// NewInvalidTicketError builds an InvalidTicketError.
func NewInvalidTicketError(id string, expected Kind, reason string) *InvalidTicketError {
	return &InvalidTicketError{ID: id, Expected: expected, Reason: reason}
}
