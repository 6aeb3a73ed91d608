package rowcache

// ConnectionConfig selects the backend type for one logical connection.
type ConnectionConfig struct {
	Handler string      `mapstructure:"handler" validate:"required"`
	Cache   CacheConfig `mapstructure:"cache"`
}

// Options configure a Manager. Connections, Registry and Store are required.
type Options struct {
	// Connections maps a connection name to its backend settings. A nil map
	// is a configuration error; an empty map sends everything to Store.
	Connections map[string]ConnectionConfig
	Registry    Registry
	Store       RecordStore

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	// SingleFlight collapses concurrent FetchOne misses for one key into
	// a single store read. Off by default.
	SingleFlight bool

	// Disabled skips the cache entirely: fetches read Store, Destroy and
	// Increment report false. No warnings are logged.
	Disabled bool
}
