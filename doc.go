// Package apigate is a client core for one rate-limited HTTP API that
// requires a short-lived bearer token. It admits at most N calls per fixed
// window, refreshes the token when it expires, and turns every failure into
// one error taxonomy.
//
// # Key Concepts
//
//   - [WindowLimiter] admits up to N callers per window. The whole pool is
//     restored at each window boundary; permits are never released early.
//   - [TokenCache] serves the current token and asks the [TokenProvider] for
//     a new one once it is older than its lifespan. Concurrent refreshes are
//     collapsed into one provider call.
//   - [Executor] performs one JSON POST with the bearer token. [HTTPExecutor]
//     is the default.
//   - [Client] sequences the three: admit, authenticate, resolve the
//     endpoint, send, check for status 200.
//   - [store.TokenStore] holds the token record. An in-memory store is used
//     by default; SQLite and Redis stores let a token outlive the process.
//
// # Errors
//
// Errors from calls match a sentinel with errors.Is: [ErrConfiguration],
// [ErrCancelled], [ErrAuthentication], [ErrTransport], [ErrUnexpectedStatus],
// [ErrDecoding], [ErrLimitExceeded] or [ErrClosed]. The underlying cause is
// kept in the chain. [Client.Close] returns the token store's error as is.
// Nothing is retried.
//
// # Quick Start
//
//	client, err := apigate.New(apigate.Config{
//		Window:            time.Second,
//		RequestsPerWindow: 5,
//		Endpoints: map[string]string{
//			"create": "https://api.example.com/v3/documents/create",
//		},
//	}, apigate.TokenProviderFunc(fetchToken))
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	resp, err := client.Invoke(ctx, "create", apigate.Params{{Key: "pg", Value: "milk"}}, body)
//
// See the [Client] documentation for the full API.
package apigate
