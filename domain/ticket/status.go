package ticket

import (
	"fixflow/bizerror"
	"fixflow/session"
	"strings"
)

type Status string

const (
	StatusCreated    = Status("created")
	StatusAssigned   = Status("assigned")
	StatusInprogress = Status("inprogress")
	StatusTesting    = Status("testing")
	StatusDone       = Status("done")
	StatusClosed     = Status("closed")
	StatusRework     = Status("rework")
)

var AllStatuses = []Status{StatusCreated, StatusAssigned, StatusInprogress,
	StatusTesting, StatusDone, StatusClosed, StatusRework}

// transitionTable lists the next statuses reachable through the generic
// status-update path. Empty rows need a distinct action: created and rework
// leave only through admin assignment, closed is terminal.
var transitionTable = map[Status][]Status{
	StatusCreated:    {},
	StatusAssigned:   {StatusAssigned, StatusInprogress, StatusTesting, StatusDone},
	StatusInprogress: {StatusInprogress, StatusTesting, StatusDone},
	StatusTesting:    {StatusTesting, StatusDone},
	StatusDone:       {StatusDone, StatusRework, StatusClosed},
	StatusRework:     {},
	StatusClosed:     {},
}

// Canonicalize folds spacing, case and legacy synonyms into one of the seven
// canonical statuses. Unrecognized input is rejected, not coerced.
func Canonicalize(raw string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.ReplaceAll(v, "-", "")
	v = strings.ReplaceAll(v, " ", "")
	v = strings.ReplaceAll(v, "_", "")

	switch Status(v) {
	case StatusCreated, StatusAssigned, StatusInprogress, StatusTesting,
		StatusDone, StatusClosed, StatusRework:
		return Status(v), nil
	}
	switch v {
	case "todo", "open", "pending", "new":
		return StatusCreated, nil
	}
	// legacy substring fallback
	switch {
	case strings.Contains(v, "progress"):
		return StatusInprogress, nil
	case strings.Contains(v, "assign"):
		return StatusAssigned, nil
	case strings.Contains(v, "test"):
		return StatusTesting, nil
	case strings.Contains(v, "rework"):
		return StatusRework, nil
	case strings.Contains(v, "done"):
		return StatusDone, nil
	case strings.Contains(v, "close"):
		return StatusClosed, nil
	}
	return "", bizerror.ErrUnknownStatus
}

func (s Status) IsValid() bool {
	_, found := transitionTable[s]
	return found
}

// AllowedTransitions computes the transitions offered to the viewer:
// the assigned developer drives assigned/inprogress/testing, only an admin
// moves a done ticket onward.
func AllowedTransitions(t *Ticket, sec *session.Session) []Status {
	if sec == nil {
		return []Status{}
	}
	switch t.Status {
	case StatusAssigned, StatusInprogress, StatusTesting:
		if t.AssignedTo != "" && sec.Identity.Name == t.AssignedTo {
			return append([]Status{}, transitionTable[t.Status]...)
		}
	case StatusDone:
		if sec.IsAdmin() {
			return append([]Status{}, transitionTable[t.Status]...)
		}
	}
	return []Status{}
}

// CheckTransition validates a requested transition. A next status outside the
// current row fails the precondition no matter who asks, a reachable next
// status still requires the right actor.
func CheckTransition(t *Ticket, next Status, sec *session.Session) error {
	if !next.IsValid() {
		return bizerror.ErrUnknownStatus
	}
	reachable := false
	for _, s := range transitionTable[t.Status] {
		if s == next {
			reachable = true
			break
		}
	}
	if !reachable {
		return bizerror.ErrPreconditionFailed
	}

	for _, s := range AllowedTransitions(t, sec) {
		if s == next {
			return nil
		}
	}
	return bizerror.ErrForbidden
}
