package orders

import "github.com/shashiranjanraj/aquaportal/pkg/collection"

// Status sets behind each dashboard view.
var (
	ActiveStatuses  = []Status{StatusPending, StatusAccepted, StatusPaid}
	HistoryStatuses = []Status{StatusDelivered, StatusCancelled, StatusRejected}

	IncomingStatuses  = []Status{StatusPaid}
	AcceptedStatuses  = []Status{StatusAccepted}
	DeliveredStatuses = []Status{StatusDelivered}

	// Admin "completed" is everything that got past Pending without being
	// cancelled.
	notCompletedStatuses = []Status{StatusCancelled, StatusPending}
	CancelledStatuses    = []Status{StatusCancelled}
)

func withStatus(set []Status) func(Order) bool {
	return func(o Order) bool { return o.Status.In(set) }
}

// ─── user ────────────────────────────────────────────────────────────────────

// Active is the user's open orders.
func Active(all []Order) []Order { return collection.Filter(all, withStatus(ActiveStatuses)) }

// History is the user's finished orders.
func History(all []Order) []Order { return collection.Filter(all, withStatus(HistoryStatuses)) }

// ─── supplier ────────────────────────────────────────────────────────────────

// Incoming is paid orders awaiting a supplier.
func Incoming(all []Order) []Order { return collection.Filter(all, withStatus(IncomingStatuses)) }

// Accepted is orders the supplier has taken on.
func Accepted(all []Order) []Order { return collection.Filter(all, withStatus(AcceptedStatuses)) }

// Delivered is orders the supplier has completed.
func Delivered(all []Order) []Order { return collection.Filter(all, withStatus(DeliveredStatuses)) }

// ─── admin ───────────────────────────────────────────────────────────────────

// Completed is every order that is neither Pending nor Cancelled.
func Completed(all []Order) []Order {
	return collection.Reject(all, withStatus(notCompletedStatuses))
}

// Cancelled is every cancelled order.
func Cancelled(all []Order) []Order { return collection.Filter(all, withStatus(CancelledStatuses)) }

// View names a filter so presentation code can select one by key.
type View struct {
	Key    string
	Title  string
	Filter func([]Order) []Order
}

var (
	UserViews = []View{
		{Key: "orders", Title: "Active Orders", Filter: Active},
		{Key: "history", Title: "Order History", Filter: History},
	}
	SupplierViews = []View{
		{Key: "incoming", Title: "Incoming Orders", Filter: Incoming},
		{Key: "active", Title: "Accepted Orders", Filter: Accepted},
		{Key: "delivered", Title: "Delivered Orders", Filter: Delivered},
	}
	AdminViews = []View{
		{Key: "completedOrders", Title: "Completed Orders", Filter: Completed},
		{Key: "cancelledOrders", Title: "Cancelled Orders", Filter: Cancelled},
	}
)

// FindView returns the view with key, or the first view when key is unknown.
func FindView(views []View, key string) View {
	v, ok := collection.First(views, func(v View) bool { return v.Key == key })
	if !ok {
		return views[0]
	}
	return v
}
