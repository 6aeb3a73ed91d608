package rowcache

// Hooks are lightweight callbacks for cache-aside events.
// Implementations MUST be cheap and non-blocking; the manager calls them on
// hot paths. Wrap slow sinks with hooks/async.
type Hooks interface {
	// n cached records were served without touching the store.
	Hit(connection, table string, n int)

	// A negative entry answered a single fetch.
	NegativeHit(connection, table string)

	// n ids had to be read from the store.
	Miss(connection, table string, n int)

	// No backend is registered for connection; the store served the call.
	HandlerMissing(connection string)

	// Increment was refused because the key is not cached.
	IncrementRejected(connection, table string)

	// A backend dropped an unreadable entry on read.
	// reason ∈ {"corrupt", "decode"}
	SelfHeal(storageKey, reason string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string, string, int)          {}
func (NopHooks) NegativeHit(string, string)       {}
func (NopHooks) Miss(string, string, int)         {}
func (NopHooks) HandlerMissing(string)            {}
func (NopHooks) IncrementRejected(string, string) {}
func (NopHooks) SelfHeal(string, string)          {}
