package postgres

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"sharebite/internal/repository"
)

// channel is the NOTIFY channel shared by the trigger functions installed by
// the migrations.
const channel = "sharebite_changes"

// Notifier delivers household-scoped change events over Postgres
// LISTEN/NOTIFY. Each subscription holds one dedicated connection.
type Notifier struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewNotifier constructs a notifier on the given pool.
func NewNotifier(pool *pgxpool.Pool, log *zap.Logger) *Notifier {
	return &Notifier{pool: pool, log: log}
}

// notifyPayload mirrors the JSON built by the trigger function.
type notifyPayload struct {
	Table       string `json:"table"`
	Op          string `json:"op"`
	HouseholdID string `json:"household_id"`
	Name        string `json:"name,omitempty"`
}

// Subscribe opens a listener and invokes onEvent for every change in the
// household until Unsubscribe is called or ctx is canceled. Events for other
// households arrive on the shared channel and are filtered out here.
func (n *Notifier) Subscribe(ctx context.Context, householdID string, onEvent func(repository.Event)) (repository.Subscription, error) {
	conn, err := n.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		conn.Release()
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer conn.Release()
		for {
			note, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() == nil {
					n.log.Warn("change listener stopped", zap.Error(err))
				}
				return
			}
			var p notifyPayload
			if err := json.Unmarshal([]byte(note.Payload), &p); err != nil {
				n.log.Warn("bad change payload", zap.String("payload", note.Payload), zap.Error(err))
				continue
			}
			if p.HouseholdID != householdID {
				continue
			}
			onEvent(repository.Event{Table: p.Table, Op: p.Op, HouseholdID: p.HouseholdID, Name: p.Name})
		}
	}()
	return sub, nil
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Unsubscribe stops the listener and waits for its goroutine to exit.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}
