// Description: This package provides the generators turning seeds into keys and values.
// Every generator is a pure function of the seed, which is what lets a validator recompute the
// value a key should hold. We assume that all textual information is in English, so we only
// handle ASCII characters.
package generator

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"strconv"

	"csb/control/constants"

	"github.com/google/uuid"
)

// ObjectGenerator maps a seed to a key or a value
type ObjectGenerator interface {
	Generate(seed int64) []byte
}

// Func adapts a plain function to ObjectGenerator
type Func func(seed int64) []byte

func (f Func) Generate(seed int64) []byte {
	return f(seed)
}

// Minimum key size calculation:
// slash (1) + domain (3) + slash (1) + region (3) + slash (1) + shard (3)  = 12 bytes
// See module csb/control/constants/constants.go for the values of MIN_KEY_SIZE

// Domain prefixes represent different business domains
var domains = []string{
	"usr", // user-related data
	"ord", // order-related data
	"prd", // product-related data
	"inv", // inventory-related data
	"sys", // system-related data
	"app", // application-related data
	"etc", // config or other data
	"var", // variable data
}

// Region codes for geographical distribution
var regions = []string{
	"na1", "na2", "na3", "na4", "na5", "na6", "na7", "na8", "na9",
	"eu1", "eu2", "eu3", "eu4", "eu5", "eu6", "eu7", "eu8", "eu9",
	"ap1", "ap2", "ap3", "ap4", "ap5", "ap6", "ap7", "ap8", "ap9",
	"afr", // Africa
	"mea", // Middle East
}

const charPool = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// KeyGenerator creates keys following a K8s-like /domain/region/shard layout
type KeyGenerator struct {
	size int
}

func NewKeyGenerator(targetSize int) (*KeyGenerator, error) {
	if targetSize < constants.MIN_KEY_SIZE {
		return nil, fmt.Errorf("target size %d is less than minimum required size %d", targetSize, constants.MIN_KEY_SIZE)
	}
	return &KeyGenerator{size: targetSize}, nil
}

// Generate builds the key for a seed. The seed is encoded in base62 after the last '-' of the
// key, so distinct seeds never collide; the rest of the padding is filled from an RNG seeded
// with the seed.
func (g *KeyGenerator) Generate(seed int64) []byte {
	u := uint64(seed)
	domain := domains[u%uint64(len(domains))]
	region := regions[(u/uint64(len(domains)))%uint64(len(regions))]
	shard := fmt.Sprintf("%03d", u%1000)

	// prefix = slash + domain + slash + region + slash + shard = 12 bytes
	prefix := "/" + domain + "/" + region + "/" + shard
	encoded := "-" + base62(u)

	paddingSize := g.size - len(prefix)
	if paddingSize < len(encoded) {
		// not enough room, give up on the target size rather than on uniqueness
		return []byte(prefix + encoded)
	}

	rg := rand.New(rand.NewSource(seed))
	key := make([]byte, 0, g.size)
	key = append(key, prefix...)
	for range paddingSize - len(encoded) {
		key = append(key, charPool[rg.Intn(len(charPool))])
	}
	return append(key, encoded...)
}

func base62(u uint64) string {
	if u == 0 {
		return "0"
	}
	var buf [11]byte
	i := len(buf)
	for u > 0 {
		i--
		buf[i] = charPool[u%62]
		u /= 62
	}
	return string(buf[i:])
}

// StringGenerator produces prefix + decimal seed
type StringGenerator struct {
	Prefix string
}

func (g StringGenerator) Generate(seed int64) []byte {
	return strconv.AppendInt([]byte(g.Prefix), seed, 10)
}

// keyNamespace scopes the name-based UUIDs generated from seeds
var keyNamespace = uuid.MustParse("6ba7b812-9dad-11d1-80b4-00c04fd430c8")

// UUIDGenerator produces a name-based (SHA1) UUID for each seed
type UUIDGenerator struct{}

func (UUIDGenerator) Generate(seed int64) []byte {
	var name [8]byte
	binary.BigEndian.PutUint64(name[:], uint64(seed))
	return []byte(uuid.NewSHA1(keyNamespace, name[:]).String())
}

// ByteArrayGenerator produces size random bytes seeded by the seed
type ByteArrayGenerator struct {
	Size int
}

func (g ByteArrayGenerator) Generate(seed int64) []byte {
	result := make([]byte, g.Size)
	// rand.Rand.Read never fails
	rand.New(rand.NewSource(seed)).Read(result)
	return result
}

// RandomStringGenerator picks from a pool of random strings built once at construction.
// Two generators built with the same construction seed produce the same values.
type RandomStringGenerator struct {
	pool [][]byte
}

func NewRandomStringGenerator(poolSize, length int, seed int64) (*RandomStringGenerator, error) {
	if poolSize <= 0 || length <= 0 {
		return nil, fmt.Errorf("pool size %d and length %d must be positive", poolSize, length)
	}
	rg := rand.New(rand.NewSource(seed))
	pool := make([][]byte, poolSize)
	for i := range pool {
		s := make([]byte, length)
		for j := range s {
			s[j] = charPool[rg.Intn(len(charPool))]
		}
		pool[i] = s
	}
	return &RandomStringGenerator{pool: pool}, nil
}

func (g *RandomStringGenerator) Generate(seed int64) []byte {
	idx := seed % int64(len(g.pool))
	if idx < 0 {
		idx += int64(len(g.pool))
	}
	// callers may keep or mutate what they get back
	return append([]byte(nil), g.pool[idx]...)
}
