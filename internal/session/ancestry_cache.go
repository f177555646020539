package session

import (
	"errors"
	"fmt"
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	"github.com/dgraph-io/ristretto"
)

// AncestryCache remembers rendered ancestry chains. Entries are keyed by the tree generation
// they were computed at, so a newer generation never sees a stale chain.
type AncestryCache interface {
	Get(generation uint64, id model.SpanId) (string, error)
	Put(generation uint64, id model.SpanId, ancestry string) error
}

type AncestryCacheImpl struct {
	cache *ristretto.Cache
}

func NewAncestryCacheImpl(cache *ristretto.Cache) *AncestryCacheImpl {
	return &AncestryCacheImpl{
		cache: cache,
	}
}

// NewDefaultRistrettoCache sizes the frequency sketch by numCounters (keys to track) and
// bounds the cached ancestry text by maxCost bytes. The two are independent.
func NewDefaultRistrettoCache(numCounters int64, maxCost int64) (*ristretto.Cache, error) {
	if numCounters <= 0 || maxCost <= 0 {
		return nil, fmt.Errorf("%w: num counters %d, max cost %d", ErrInvalidCacheSize, numCounters, maxCost)
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters, // number of keys to track frequency of.
		MaxCost:     maxCost,     // bytes of ancestry text.
		BufferItems: 64,          // number of keys per Get buffer.
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return cache, nil
}

func (ac *AncestryCacheImpl) Get(generation uint64, id model.SpanId) (string, error) {
	value, found := ac.cache.Get(cacheKey(generation, id))
	if !found {
		return "", ErrKeyNotFound
	}
	typedValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value not of expected type %T returned from cache when getting", value)
	}
	return typedValue, nil
}

func (ac *AncestryCacheImpl) Put(generation uint64, id model.SpanId, ancestry string) error {
	set := ac.cache.Set(cacheKey(generation, id), ancestry, int64(len(ancestry)))
	if !set {
		return ErrSetFailed
	}
	return nil
}

func cacheKey(generation uint64, id model.SpanId) string {
	return fmt.Sprintf("%d:%d", generation, id)
}

var (
	ErrKeyNotFound      = errors.New("key not found within the cache")
	ErrSetFailed        = errors.New("failed to set value in cache")
	ErrInvalidCacheSize = errors.New("invalid ancestry cache size")
)
