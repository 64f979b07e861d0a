package enums

import "fmt"

// OutboxAggregateType names the entity an outbox row describes.
type OutboxAggregateType string

const (
	AggregateCustomer OutboxAggregateType = "customer"
	AggregateOrder    OutboxAggregateType = "order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateCustomer,
	AggregateOrder,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType is the kind of change recorded in an outbox row.
type OutboxEventType string

const (
	EventCustomerCreated OutboxEventType = "customer_created"
	EventCustomerUpdated OutboxEventType = "customer_updated"
	EventCustomerRemoved OutboxEventType = "customer_removed"
	EventOrderCreated    OutboxEventType = "order_created"
	EventOrderUpdated    OutboxEventType = "order_updated"
	EventOrderRemoved    OutboxEventType = "order_removed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventCustomerCreated,
	EventCustomerUpdated,
	EventCustomerRemoved,
	EventOrderCreated,
	EventOrderUpdated,
	EventOrderRemoved,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
