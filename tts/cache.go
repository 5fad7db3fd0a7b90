package tts

import (
	"container/list"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/eloquence-ai/studio/types"
)

// cacheVersion is part of every cache key; bump it when synthesis
// semantics change so stale audio is never replayed.
const cacheVersion = "french_v1"

// cacheKeyPayload is marshalled with fields in a fixed order so the same
// inputs always hash to the same key.
type cacheKeyPayload struct {
	AgentID   string  `json:"agent_id"`
	Emotion   string  `json:"emotion"`
	Intensity float64 `json:"intensity"`
	Text      string  `json:"text"`
	Version   string  `json:"version"`
}

// CacheKey derives the deterministic md5 key for a synthesis request.
func CacheKey(text, personaID string, profile types.EmotionProfile) string {
	profile = profile.Normalize()
	payload, _ := json.Marshal(cacheKeyPayload{
		AgentID:   personaID,
		Emotion:   string(profile.Primary),
		Intensity: profile.Intensity,
		Text:      text,
		Version:   cacheVersion,
	})
	sum := md5.Sum(payload)
	return hex.EncodeToString(sum[:])
}

type audioEntry struct {
	key       string
	pcm       []byte
	expiresAt time.Time
}

// audioCache is a bounded in-process LRU with per-entry TTL storing final
// PCM bytes.
type audioCache struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	ll         *list.List
	items      map[string]*list.Element
	now        func() time.Time
}

func newAudioCache(cfg CacheConfig) *audioCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 256
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &audioCache{
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		now:        time.Now,
	}
}

func (c *audioCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*audioEntry)
	if c.now().After(entry.expiresAt) {
		c.ll.Remove(el)
		delete(c.items, key)
		return nil, false
	}
	c.ll.MoveToFront(el)
	return entry.pcm, true
}

func (c *audioCache) put(key string, pcm []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		entry := el.Value.(*audioEntry)
		entry.pcm = pcm
		entry.expiresAt = c.now().Add(c.ttl)
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&audioEntry{key: key, pcm: pcm, expiresAt: c.now().Add(c.ttl)})
	c.items[key] = el

	for c.ll.Len() > c.maxEntries {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*audioEntry).key)
	}
}

func (c *audioCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
