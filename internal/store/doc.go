// Package store provides pluggable state management for session adapters.
//
// [MessageStore] is a specialized ordered store for conversation history,
// parameterized over the provider's own message param type, with pluggable
// persistence through the [Adapter] interface and a default in-memory
// implementation via [MemoryAdapter].
//
// # Message Store
//
// Use MessageStore for conversation history, parameterized over the
// provider's own message param type:
//
//	history := store.NewMessageStore[anthropic.MessageParam](nil)
//	history.Append(anthropic.NewUserMessage(anthropic.NewTextBlock("Hello")))
//
//	msgs := history.Messages() // Get all messages
//
// # Persistence
//
// Persist state by calling Sync, reload with Reload:
//
//	history := store.NewMessageStore[anthropic.MessageParam](myAdapter)
//	history.Append(anthropic.NewUserMessage(anthropic.NewTextBlock("Hello")))
//
//	if err := history.Sync(ctx, "session-123"); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := history.Reload(ctx, "session-123"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Custom Adapters
//
// Implement the Adapter interface for custom persistence:
//
//	type RedisAdapter struct { ... }
//
//	func (r *RedisAdapter) Get(ctx context.Context, key string) (json.RawMessage, bool, error) { ... }
//	func (r *RedisAdapter) Set(ctx context.Context, key string, value json.RawMessage) error { ... }
//	// ... implement remaining methods
package store
