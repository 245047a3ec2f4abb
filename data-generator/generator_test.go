package generator

import (
	"bytes"
	"strings"
	"testing"

	config "csb/control/config"
)

func TestGeneratorDeterminism(t *testing.T) {
	defaultCfg := config.GetDefaultConfig()
	keyGen, err := NewKeyGenerator(defaultCfg.KeySize)
	if err != nil {
		t.Fatalf("NewKeyGenerator() error = %v", err)
	}
	pool1, _ := NewRandomStringGenerator(64, 32, 42)
	pool2, _ := NewRandomStringGenerator(64, 32, 42)

	testCases := []struct {
		name  string
		gen1  ObjectGenerator
		gen2  ObjectGenerator
		count int
	}{
		{"K8s keys", keyGen, keyGen, 10000},
		{"String keys", StringGenerator{Prefix: "key-"}, StringGenerator{Prefix: "key-"}, 10000},
		{"UUID keys", UUIDGenerator{}, UUIDGenerator{}, 10000},
		{"Byte values", ByteArrayGenerator{Size: defaultCfg.ValueSize}, ByteArrayGenerator{Size: defaultCfg.ValueSize}, 1000},
		{"Random string pool", pool1, pool2, 1000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for seed := int64(0); seed < int64(tc.count); seed++ {
				if !bytes.Equal(tc.gen1.Generate(seed), tc.gen2.Generate(seed)) {
					t.Fatalf("Different values generated for seed %d", seed)
				}
			}
		})
	}
}

func TestKeysAreUnique(t *testing.T) {
	keyGen, err := NewKeyGenerator(16)
	if err != nil {
		t.Fatalf("NewKeyGenerator() error = %v", err)
	}
	testCases := []struct {
		name string
		gen  ObjectGenerator
	}{
		{"K8s keys", keyGen},
		{"String keys", StringGenerator{}},
		{"UUID keys", UUIDGenerator{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seen := make(map[string]int64, 100000)
			for seed := int64(0); seed < 100000; seed++ {
				key := string(tc.gen.Generate(seed))
				if prev, ok := seen[key]; ok {
					t.Fatalf("seeds %d and %d both generated key %s", prev, seed, key)
				}
				seen[key] = seed
			}
		})
	}
}

func TestKeyGeneratorLayout(t *testing.T) {
	if _, err := NewKeyGenerator(8); err == nil {
		t.Error("NewKeyGenerator() expected error for key size below the minimum")
	}

	keyGen, _ := NewKeyGenerator(24)
	for seed := int64(0); seed < 1000; seed++ {
		key := string(keyGen.Generate(seed))
		if len(key) != 24 {
			t.Fatalf("Wrong key size for seed %d: got %d, want 24", seed, len(key))
		}
		parts := strings.Split(strings.TrimPrefix(key, "/"), "/")
		if len(parts) != 3 {
			t.Fatalf("Unexpected key layout %s", key)
		}
	}
}

func TestValueSizes(t *testing.T) {
	v := ByteArrayGenerator{Size: 128}.Generate(7)
	if len(v) != 128 {
		t.Errorf("Wrong value size: got %d, want 128", len(v))
	}

	if _, err := NewRandomStringGenerator(0, 10, 1); err == nil {
		t.Error("NewRandomStringGenerator() expected error for empty pool")
	}
	pool, _ := NewRandomStringGenerator(4, 10, 1)
	if !bytes.Equal(pool.Generate(-1), pool.Generate(3)) {
		t.Error("negative seeds should wrap around the pool")
	}
}
