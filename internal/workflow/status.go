package workflow

const (
	StatusDraft     = "draft"
	StatusSent      = "sent"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// transitions maps each kind's legal status edges. Terminal states have no
// outgoing edges; reopening a decided version means creating a new one.
var transitions = map[string]map[string][]string{
	KindProposal: {
		StatusDraft: {StatusSent},
		StatusSent:  {StatusApproved, StatusRejected},
	},
	KindPurchaseOrder: {
		StatusDraft: {StatusSent},
		StatusSent:  {StatusConfirmed, StatusCancelled},
	},
}

// CanTransition reports whether a version of the given kind may move from
// one status to another.
func CanTransition(kind, from, to string) bool {
	for _, next := range transitions[kind][from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions for the
// kind.
func IsTerminal(kind, status string) bool {
	_, known := transitions[kind]
	if !known {
		return false
	}
	return len(transitions[kind][status]) == 0
}

// ValidStatus reports whether the status exists at all for the kind.
func ValidStatus(kind, status string) bool {
	if status == StatusDraft {
		_, ok := transitions[kind]
		return ok
	}
	for _, targets := range transitions[kind] {
		for _, target := range targets {
			if target == status {
				return true
			}
		}
	}
	return false
}
