package workflow

import (
	"github.com/bakeprint/bakeprint-api/models"
)

// Actor identifies the requesting user for permission checks. For bakers,
// UserID is also the owning-baker identity.
type Actor struct {
	UserID uint
	Role   string
	Email  string
}

// StagePayload is the client-supplied portion of a stage-change request
type StagePayload struct {
	Price    *float64
	Comments string
}

// StageChange is the validated mutation a successful validation hands to the
// executor: the target stage plus the payload subset to apply. The validator
// never mutates the order itself.
type StageChange struct {
	Target   string
	Price    *float64
	Comments string
}

// ValidateTransition decides whether the actor may move the order to the
// target stage and enforces the stage-specific data invariants. Ownership is
// checked first, then edge membership against the table, then invariants that
// only apply once the edge is otherwise legal. Detection happens entirely
// before any mutation.
func ValidateTransition(table *TransitionTable, order *models.Order, actor Actor, target string, payload StagePayload) (*StageChange, error) {
	if actor.Role == models.RoleBaker && order.BakerID != actor.UserID {
		return nil, &AccessDeniedError{}
	}

	if !table.CanTransition(actor.Role, order.Stage, target) {
		return nil, &InvalidTransitionError{
			From:    order.Stage,
			Target:  target,
			Allowed: table.AllowedTargets(actor.Role, order.Stage),
		}
	}

	change := &StageChange{Target: target, Comments: payload.Comments}

	if target == StageRequiresApproval {
		price := payload.Price
		if price == nil {
			price = order.Price
		}
		if price == nil || *price <= 0 {
			return nil, &MissingPriceError{}
		}
		if payload.Price != nil {
			change.Price = payload.Price
		}
	}

	if actor.Role == models.RoleBaker && order.Stage == StageDraft && target == StageSubmitted {
		missing := 0
		for i := range order.Items {
			if order.Items[i].InspirationImageCount() == 0 {
				missing++
			}
		}
		if missing > 0 {
			return nil, &IncompleteSubmissionError{ItemCount: missing}
		}
	}

	return change, nil
}

// CanDelete reports whether the actor may delete the order. Bakers may delete
// only their own orders while still baker-editable; admins may delete any.
func CanDelete(order *models.Order, actor Actor) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if order.BakerID != actor.UserID {
		return &AccessDeniedError{}
	}
	if !BakerEditableStage(order.Stage) {
		return &ValidationError{
			Code:    CodeValidation,
			Message: "orders can only be deleted while in Draft or Requested Changes",
		}
	}
	return nil
}

// CanView reports whether the actor may read the order
func CanView(order *models.Order, actor Actor) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if order.BakerID != actor.UserID {
		return &AccessDeniedError{}
	}
	return nil
}

// CanEditItems reports whether the actor may mutate the order's items. Admins
// may always edit (previews are attached during review); bakers only while
// the order sits in a baker-editable stage.
func CanEditItems(order *models.Order, actor Actor) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if order.BakerID != actor.UserID {
		return &AccessDeniedError{}
	}
	if !BakerEditableStage(order.Stage) {
		return &ValidationError{
			Code:    CodeValidation,
			Message: "items can only be changed while the order is in Draft or Requested Changes",
		}
	}
	return nil
}
