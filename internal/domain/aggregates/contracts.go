package aggregates

// WriteTxOwnership defines who owns write transaction boundaries.
type WriteTxOwnership string

const (
	// WriteTxOwnedByAggregate means write methods open and commit their own transaction.
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
)

// Contract is the write policy every aggregate operation runs under.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	// MaxAttempts bounds how often a write is rerun after a retryable
	// failure (serialization, deadlock, busy database). Values below 1 mean 1.
	MaxAttempts int
}

// Aggregate is implemented by every aggregate; writes consult its contract.
type Aggregate interface {
	Contract() Contract
}

func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}

func (c Contract) Attempts() int {
	if c.MaxAttempts < 1 {
		return 1
	}
	return c.MaxAttempts
}
