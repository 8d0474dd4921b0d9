package domain

import (
	"fmt"
	"time"
)

// Action is the direction of an order relative to the position.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// OrderStatus represents the lifecycle of an order on the exchange.
type OrderStatus string

const (
	OrderSubmitting      OrderStatus = "SUBMITTING"
	OrderPending         OrderStatus = "PENDING"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCanceled        OrderStatus = "CANCELED"
	OrderExpired         OrderStatus = "EXPIRED"
	OrderRejected        OrderStatus = "REJECTED"
)

// Terminal returns true if the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderFilled, OrderCanceled, OrderExpired, OrderRejected:
		return true
	}
	return false
}

// orderTransitions is the single transition table for order statuses.
// Illegal transitions (e.g. FILLED → PENDING) are rejected at runtime.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderSubmitting:      {OrderPending, OrderPartiallyFilled, OrderFilled, OrderRejected},
	OrderPending:         {OrderPartiallyFilled, OrderFilled, OrderCanceled, OrderExpired, OrderRejected},
	OrderPartiallyFilled: {OrderPending, OrderPartiallyFilled, OrderFilled, OrderCanceled, OrderExpired},
}

// CanTransition returns true if s → to is a legal transition.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Order is a tracked order. Created by the lifecycle manager; status
// transitions are the only writes; dropped from tracking once terminal
// and reconciled into the ledger.
type Order struct {
	ClientID       string // idempotency key (UUID, local)
	ExchangeID     string // assigned by the exchange
	Ticker         string
	Side           Side
	Action         Action
	Price          int64 // requested limit price, cents
	Quantity       int64 // requested contracts
	Status         OrderStatus
	FilledQuantity int64
	AvgFillPrice   int64 // weighted mean over constituent fills, cents
	Tag            string // why the order was placed ("entry", "profit_target", ...)
	Reason         string // rejection/expiry detail, if any
	CreatedAt      time.Time
	ClosedAt       time.Time // set on terminal transition
}

// Transition moves the order to a new status, enforcing the transition table.
func (o *Order) Transition(to OrderStatus) error {
	if !o.Status.CanTransition(to) {
		return fmt.Errorf("order %s: illegal transition %s → %s", o.ClientID, o.Status, to)
	}
	o.Status = to
	if to.Terminal() {
		o.ClosedAt = time.Now().UTC()
	}
	return nil
}

// RecordFill folds a fill observation into the order. totalFilled is the
// cumulative filled quantity reported by the exchange, avgPrice its
// weighted average. Filled quantity never exceeds requested quantity.
func (o *Order) RecordFill(totalFilled, avgPrice int64) error {
	if totalFilled < o.FilledQuantity {
		return fmt.Errorf("order %s: fill went backwards (%d < %d)", o.ClientID, totalFilled, o.FilledQuantity)
	}
	if totalFilled > o.Quantity {
		return fmt.Errorf("order %s: filled %d exceeds requested %d", o.ClientID, totalFilled, o.Quantity)
	}
	o.FilledQuantity = totalFilled
	if totalFilled > 0 && avgPrice > 0 {
		o.AvgFillPrice = avgPrice
	}
	return nil
}

// FillCost returns the total cost of the filled quantity in cents.
func (o Order) FillCost() int64 {
	return o.FilledQuantity * o.AvgFillPrice
}

// OrderRequest is the input to order placement.
type OrderRequest struct {
	ClientID string // idempotency key; assigned if empty
	Ticker   string
	Side     Side
	Action   Action
	Price    int64
	Quantity int64
	Tag      string // carried onto the order for journaling
}

// OrderState is the exchange's view of an order, returned by submit and
// status queries.
type OrderState struct {
	ExchangeID     string
	Status         OrderStatus
	FilledQuantity int64
	AvgFillPrice   int64
}
