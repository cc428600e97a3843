// package events publishes custody audit events.
//
// An event is published after each mined custody transaction. The ledger is the source of truth:
// publishing is best effort and a failure is logged by the caller, it never fails the custody operation.
//
// Events are published as JSON to a durable topic exchange with the routing key "bl.<type>",
// e.g. bl.minted or bl.transfer_accepted.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a custody transition
type EventType string

const (
	EventMinted            EventType = "minted"
	EventTransferRequested EventType = "transfer_requested"
	EventTransferAccepted  EventType = "transfer_accepted"
	EventInvalidated       EventType = "invalidated"
	EventUsed              EventType = "used"
)

// RoutingKey returns the routing key used to publish events of this type
func (t EventType) RoutingKey() string {
	return "bl." + string(t)
}

// CustodyEvent records a mined custody transaction
type CustodyEvent struct {
	ID          uuid.UUID `json:"id"`
	Type        EventType `json:"type"`
	TokenID     string    `json:"tokenId"`
	CID         string    `json:"cid"`
	Actor       string    `json:"actor"`
	To          string    `json:"to,omitempty"`
	TxHash      string    `json:"txHash"`
	BlockNumber uint64    `json:"blockNumber"`

	// DocumentHash is the ledger fingerprint recorded by mint and acceptTransfer
	DocumentHash string    `json:"documentHash,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// NewCustodyEvent returns an event with a new id and the current time
func NewCustodyEvent(eventType EventType, tokenID, cid, actor, txHash string, blockNumber uint64) CustodyEvent {
	return CustodyEvent{
		ID:          uuid.New(),
		Type:        eventType,
		TokenID:     tokenID,
		CID:         cid,
		Actor:       actor,
		TxHash:      txHash,
		BlockNumber: blockNumber,
		OccurredAt:  time.Now().UTC(),
	}
}

// Publisher publishes custody events
type Publisher interface {
	Publish(ctx context.Context, event CustodyEvent) error
	Close() error
}

// NoopPublisher discards events (used when no broker is configured)
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event CustodyEvent) error { return nil }
func (NoopPublisher) Close() error                                          { return nil }
