package repository

import "context"

// Event describes a single remote change delivered by the push channel.
type Event struct {
	Table       string // recipes, plans or households
	Op          string // INSERT, UPDATE or DELETE
	HouseholdID string
	Name        string // new display name, set on a household rename
}

// Notifier delivers push notifications about remote changes in a household.
type Notifier interface {
	// Subscribe opens a channel scoped to the household and invokes onEvent
	// for every matching change until the subscription is torn down or ctx
	// is canceled. onEvent runs on the listener goroutine and must not block.
	Subscribe(ctx context.Context, householdID string, onEvent func(Event)) (Subscription, error)
}

// Subscription is an open push channel.
type Subscription interface {
	// Unsubscribe tears the channel down and waits for the listener to stop.
	// Safe to call more than once.
	Unsubscribe()
}
