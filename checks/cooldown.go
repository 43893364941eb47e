package checks

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// BucketType decides which interactions share a cooldown bucket
type BucketType int

const (
	// BucketDefault shares a single bucket across all invocations
	BucketDefault BucketType = iota
	// BucketUser tracks cooldowns per user, regardless of guild
	BucketUser
	// BucketGuild tracks cooldowns per guild, falling back to the user in DMs
	BucketGuild
	// BucketChannel tracks cooldowns per channel
	BucketChannel
	// BucketMember tracks cooldowns per guild and user pair
	BucketMember
)

// CooldownError is returned when an invocation is rate limited.
// It is deliberately not a check Failure: a cooldown rejection is a
// different condition from a permission denial.
type CooldownError struct {
	Rate       int
	Per        time.Duration
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("You are on cooldown. Try again in %.2fs", e.RetryAfter.Seconds())
}

// Cooldown allows `rate` invocations per `per` window, bucketed by the
// configured BucketType. Buckets are created lazily and evicted once stale.
type Cooldown struct {
	rate   int
	per    time.Duration
	bucket BucketType

	mu      sync.Mutex
	buckets map[string]*cooldownBucket
	now     func() time.Time
}

type cooldownBucket struct {
	tokens int
	window time.Time
	last   time.Time
}

func NewCooldown(rate int, per time.Duration, bucket BucketType) *Cooldown {
	return &Cooldown{
		rate:    rate,
		per:     per,
		bucket:  bucket,
		buckets: make(map[string]*cooldownBucket),
		now:     time.Now,
	}
}

func (c *Cooldown) Rate() int {
	return c.rate
}

func (c *Cooldown) Per() time.Duration {
	return c.per
}

func (c *Cooldown) Bucket() BucketType {
	return c.bucket
}

// Update consumes a token from the interaction's bucket. It returns a
// *CooldownError when the bucket is exhausted.
func (c *Cooldown) Update(i *discordgo.InteractionCreate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.evictStale(now)

	key := c.key(i)
	bucket, ok := c.buckets[key]
	if !ok {
		bucket = &cooldownBucket{tokens: c.rate}
		c.buckets[key] = bucket
	}
	bucket.last = now

	if now.After(bucket.window.Add(c.per)) {
		bucket.tokens = c.rate
	}
	// a full bucket means a fresh window starts with this invocation
	if bucket.tokens == c.rate {
		bucket.window = now
	}
	if bucket.tokens == 0 {
		return &CooldownError{
			Rate:       c.rate,
			Per:        c.per,
			RetryAfter: c.per - now.Sub(bucket.window),
		}
	}
	bucket.tokens--
	return nil
}

// RetryAfter reports how long the interaction's bucket remains exhausted
// without consuming a token. Zero means the command may run.
func (c *Cooldown) RetryAfter(i *discordgo.InteractionCreate) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	bucket, ok := c.buckets[c.key(i)]
	if !ok {
		return 0
	}
	now := c.now()
	if bucket.tokens > 0 || now.After(bucket.window.Add(c.per)) {
		return 0
	}
	return c.per - now.Sub(bucket.window)
}

// Reset clears the interaction's bucket.
func (c *Cooldown) Reset(i *discordgo.InteractionCreate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.buckets, c.key(i))
}

func (c *Cooldown) key(i *discordgo.InteractionCreate) string {
	switch c.bucket {
	case BucketUser:
		return interactionUser(i).ID
	case BucketGuild:
		if i.GuildID != "" {
			return i.GuildID
		}
		return interactionUser(i).ID
	case BucketChannel:
		return i.ChannelID
	case BucketMember:
		return i.GuildID + ":" + interactionUser(i).ID
	default:
		return ""
	}
}

// evictStale drops buckets that have been idle for a full window.
// Only runs once the map has grown enough to matter. Caller holds the lock.
func (c *Cooldown) evictStale(now time.Time) {
	if len(c.buckets) < 64 {
		return
	}
	for key, bucket := range c.buckets {
		if now.After(bucket.last.Add(c.per)) {
			delete(c.buckets, key)
		}
	}
}
