package contracts

import "context"

// Transactor runs fn inside one storage transaction. The transaction
// travels in the context so repositories pick it up transparently.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
