package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCollections_HaveValidators(t *testing.T) {
	for name, def := range Collections {
		schema, ok := def.Validator["$jsonSchema"].(bson.M)
		if !ok {
			t.Errorf("%s: missing $jsonSchema", name)
			continue
		}
		if _, ok := schema["required"].([]string); !ok {
			t.Errorf("%s: missing required fields", name)
		}
		if len(def.Indexes) == 0 {
			t.Errorf("%s: no indexes", name)
		}
	}
}

func TestRegistrationLocksExpire(t *testing.T) {
	for _, idx := range Collections["registration_locks"].Indexes {
		if idx.Options != nil && idx.Options.ExpireAfterSeconds != nil {
			if *idx.Options.ExpireAfterSeconds <= 0 {
				t.Errorf("ExpireAfterSeconds = %d", *idx.Options.ExpireAfterSeconds)
			}
			return
		}
	}
	t.Error("registration_locks has no TTL index")
}

func TestUniqueIndexes(t *testing.T) {
	tests := []struct {
		collection string
		keys       []string
	}{
		{"users", []string{"email"}},
		{"roles", []string{"organization_id", "name"}},
		{"promo_codes", []string{"event_id", "code"}},
		{"guests", []string{"event_id", "email"}},
	}

	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			for _, idx := range Collections[tt.collection].Indexes {
				keys, ok := idx.Keys.(bson.D)
				if !ok || len(keys) != len(tt.keys) || idx.Options == nil || idx.Options.Unique == nil || !*idx.Options.Unique {
					continue
				}
				match := true
				for i, k := range keys {
					if k.Key != tt.keys[i] {
						match = false
					}
				}
				if match {
					return
				}
			}
			t.Errorf("no unique index on %v", tt.keys)
		})
	}
}
