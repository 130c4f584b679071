package enums

// CodeStatus tracks the lifecycle of a redemption code. A code moves from
// available to sold exactly once and never back.
type CodeStatus string

const (
	CodeStatusAvailable CodeStatus = "available"
	CodeStatusSold      CodeStatus = "sold"
)

func (s CodeStatus) IsValid() bool {
	switch s {
	case CodeStatusAvailable, CodeStatusSold:
		return true
	}
	return false
}

func (s CodeStatus) String() string { return string(s) }

// OrderStatus mirrors the storefront's order states.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCanceled  OrderStatus = "canceled"
)

func (s OrderStatus) String() string { return string(s) }

// ChangeOperation labels the mutation carried by a resource:changed event.
type ChangeOperation string

const (
	ChangeOperationInsert  ChangeOperation = "insert"
	ChangeOperationUpdate  ChangeOperation = "update"
	ChangeOperationDelete  ChangeOperation = "delete"
	ChangeOperationReplace ChangeOperation = "replace"
)

// Collection names used as event aggregates on the broadcast channel.
type Collection string

const (
	CollectionProducts       Collection = "products"
	CollectionCategories     Collection = "categories"
	CollectionCodes          Collection = "codes"
	CollectionOrders         Collection = "orders"
	CollectionReviews        Collection = "reviews"
	CollectionUsers          Collection = "users"
	CollectionPaymentMethods Collection = "payment_methods"
	CollectionSettings       Collection = "settings"
)
