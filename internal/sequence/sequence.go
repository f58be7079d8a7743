// Package sequence hands out strictly increasing integers per named counter.
// Account identifiers are derived from these values, so every implementation
// must increment and read in one atomic step.
package sequence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/clarovate/onboarding/internal/errs"
	"github.com/clarovate/onboarding/pkg/database"
)

// User is the counter namespace for account identifiers.
const User = "user"

// Generator returns the next value of a named counter. The first call for a
// name returns 1.
type Generator interface {
	Next(ctx context.Context, name string) (int64, error)
}

// FormatAccountID zero-pads n to at least two digits after prefix (USER01).
func FormatAccountID(prefix string, n int64) string {
	return fmt.Sprintf("%s%02d", prefix, n)
}

// PostgresGenerator keeps counters in sequence_counters.
type PostgresGenerator struct {
	db database.DBTX
}

// NewPostgresGenerator creates a counter store on db.
func NewPostgresGenerator(db database.DBTX) *PostgresGenerator {
	return &PostgresGenerator{db: db}
}

// Next upserts and increments the counter in a single statement; the row
// lock taken by ON CONFLICT DO UPDATE serializes concurrent callers.
func (g *PostgresGenerator) Next(ctx context.Context, name string) (int64, error) {
	const q = `INSERT INTO sequence_counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequence_counters.value + 1
		RETURNING value`
	var v int64
	if err := g.db.QueryRow(ctx, q, name).Scan(&v); err != nil {
		return 0, errs.Storage(fmt.Errorf("next %s: %w", name, err))
	}
	return v, nil
}

// raiseScript sets KEYS[1] to ARGV[1] unless it already holds a larger value.
var raiseScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if cur < floor then
	redis.call('SET', KEYS[1], ARGV[1])
	return floor
end
return cur
`)

// RedisGenerator keeps counters as integer keys under sequence:<name>.
// Redis may lose keys on restart or flush, so callers should raise the
// counter with EnsureAtLeast from the durable high-water mark at startup.
type RedisGenerator struct {
	client *redis.Client
}

// NewRedisGenerator creates a Redis-backed counter store.
func NewRedisGenerator(client *redis.Client) *RedisGenerator {
	return &RedisGenerator{client: client}
}

// Next uses INCR, which creates a missing key at 0 before incrementing.
func (g *RedisGenerator) Next(ctx context.Context, name string) (int64, error) {
	v, err := g.client.Incr(ctx, "sequence:"+name).Result()
	if err != nil {
		return 0, errs.Storage(fmt.Errorf("incr %s: %w", name, err))
	}
	return v, nil
}

// EnsureAtLeast raises the counter to floor if it is lower, so the next
// value is strictly greater than floor. It returns the resulting value.
func (g *RedisGenerator) EnsureAtLeast(ctx context.Context, name string, floor int64) (int64, error) {
	v, err := raiseScript.Run(ctx, g.client, []string{"sequence:" + name}, floor).Int64()
	if err != nil {
		return 0, errs.Storage(fmt.Errorf("raise %s: %w", name, err))
	}
	return v, nil
}

var (
	_ Generator = (*PostgresGenerator)(nil)
	_ Generator = (*RedisGenerator)(nil)
)
