// Package transport defines the contract between the resilience
// coordination layer and the peer network it protects.
//
// The coordination layer never implements connections, framing, or shard
// storage itself; it consumes them through the Transport interface and the
// optional ShardManager capability. The sentinel errors in this package
// form the failure taxonomy the retry layer uses to decide whether a
// failed call is worth retrying:
//
//	resilience.NewRetry(resilience.RetryConfig{
//	    RetryIf: transport.IsRetryable,
//	})
//
// Implementations should wrap failures with the matching sentinel:
//
//	return nil, fmt.Errorf("%w: dial %s: %v", transport.ErrConnection, addr, err)
package transport
