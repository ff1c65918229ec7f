package orders

import "errors"

// ErrNotCancellable is returned by Cancel before any request is sent when the
// order's state does not allow it. The backend stays the authority for
// everything that passes this check.
var ErrNotCancellable = errors.New("orders: order cannot be cancelled")

var (
	cancellableStatuses = []Status{StatusPending, StatusAccepted, StatusRejected}
	respondableStatuses = []Status{StatusPending, StatusPaid}
)

// CanCancel reports whether the user may cancel o.
func CanCancel(o Order) bool {
	return o.Status.In(cancellableStatuses) && !o.Paid()
}

// CanRespond reports whether a supplier may accept or reject o.
func CanRespond(o Order) bool {
	return o.SupplierID() == "" && o.Status.In(respondableStatuses)
}

// CanDeliver reports whether supplierID may mark o delivered.
func CanDeliver(o Order, supplierID string) bool {
	return supplierID != "" && o.SupplierID() == supplierID && o.Status == StatusAccepted
}

// Action is a mutation offered on an order row.
type Action string

const (
	ActionCancel  Action = "cancel"
	ActionAccept  Action = "accept"
	ActionReject  Action = "reject"
	ActionDeliver Action = "deliver"
)

// UserActions lists what the owning user may do with o.
func UserActions(o Order) []Action {
	if CanCancel(o) {
		return []Action{ActionCancel}
	}
	return nil
}

// SupplierActions lists what supplierID may do with o.
func SupplierActions(o Order, supplierID string) []Action {
	var out []Action
	if CanRespond(o) {
		out = append(out, ActionAccept, ActionReject)
	}
	if CanDeliver(o, supplierID) {
		out = append(out, ActionDeliver)
	}
	return out
}
