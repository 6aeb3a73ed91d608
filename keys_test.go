package rowcache

import (
	"testing"
	"time"
)

func TestCacheKeyDeterministic(t *testing.T) {
	cfg := CacheConfig{}.withDefaults("app")
	tests := []struct {
		name   string
		id     ID
		entity EntityType
		want   string
	}{
		{"int", IntID(7), EntityType{Table: "users"}, "mc:app:m:users:id:7"},
		{"string", StringID("abc"), EntityType{Table: "users"}, "mc:app:m:users:id:abc"},
		{"custom_pk", IntID(7), EntityType{Table: "users", PrimaryKey: "uid"}, "mc:app:m:users:uid:7"},
		{"negative_int", IntID(-3), EntityType{Table: "t"}, "mc:app:m:t:id:-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := CacheKey(tt.id, tt.entity, cfg)
			b := CacheKey(tt.id, tt.entity, cfg)
			if a != b {
				t.Fatalf("not deterministic: %q vs %q", a, b)
			}
			if a != tt.want {
				t.Fatalf("got %q want %q", a, tt.want)
			}
		})
	}
}

func TestCacheKeyNoCollisionAcrossTablesAndKeys(t *testing.T) {
	cfg := CacheConfig{Prefix: "app", KeyTemplate: DefaultKeyTemplate, TTL: time.Minute}
	seen := map[string]EntityType{}
	for _, e := range []EntityType{
		{Table: "users"},
		{Table: "posts"},
		{Table: "users", PrimaryKey: "uuid"},
		{Table: "posts", PrimaryKey: "uuid"},
	} {
		k := CacheKey(IntID(1), e, cfg)
		if prev, dup := seen[k]; dup {
			t.Fatalf("%+v and %+v share key %q", prev, e, k)
		}
		seen[k] = e
	}
}

func TestIntAndStringIDShareKey(t *testing.T) {
	cfg := CacheConfig{}.withDefaults("app")
	if CacheKey(IntID(42), users, cfg) != CacheKey(StringID("42"), users, cfg) {
		t.Fatalf("ids rendering the same must address the same entry")
	}
}

func TestCacheConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CacheConfig
		wantErr bool
	}{
		{"default", CacheConfig{}.withDefaults("x"), false},
		{"custom", CacheConfig{KeyTemplate: "%s/%s/%s/%s", TTL: time.Second}.withDefaults("x"), false},
		{"too_few", CacheConfig{KeyTemplate: "%s:%s:%s"}.withDefaults("x"), true},
		{"too_many", CacheConfig{KeyTemplate: "%s:%s:%s:%s:%s"}.withDefaults("x"), true},
		{"negative_ttl", CacheConfig{TTL: -time.Second}.withDefaults("x"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.validate(); (err != nil) != tt.wantErr {
				t.Fatalf("validate() err=%v wantErr=%v", err, tt.wantErr)
			}
		})
	}
}
