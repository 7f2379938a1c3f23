// Package retry holds the retry strategies shared by the database and queue layers.
package retry

import (
	"time"

	"github.com/wb-go/wbf/retry"
)

// DefaultStrategy is used for database statements.
var DefaultStrategy = retry.Strategy{
	Attempts: 3,
	Delay:    500 * time.Millisecond,
	Backoff:  2.0,
}

// QueueStrategy is used for Kafka publish and fetch.
var QueueStrategy = retry.Strategy{
	Attempts: 3,
	Delay:    2 * time.Second,
	Backoff:  2.0,
}

// HandlerStrategy is used when a fetched task fails with a transient error.
var HandlerStrategy = retry.Strategy{
	Attempts: 3,
	Delay:    time.Second,
	Backoff:  2.0,
}
