package domain

import "context"

// OrderBackend is the port the CLI drives. The domain does not know about
// HTTP, tokens or how the session is stored.
type OrderBackend interface {
	ListOrders(ctx context.Context) ([]Order, error)
	CreateOrder(ctx context.Context, order Order) (Order, error)
	LoadReferenceData(ctx context.Context) (ReferenceData, error)
}
