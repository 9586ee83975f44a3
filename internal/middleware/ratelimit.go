// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/templates/forum/internal/config"
	"github.com/carterperez-dev/templates/forum/internal/core"
	"github.com/carterperez-dev/templates/forum/internal/forum"
	"github.com/carterperez-dev/templates/forum/internal/metrics"
)

// Allower is the subset of redis_rate.Limiter the middleware needs.
type Allower interface {
	Allow(
		ctx context.Context,
		key string,
		limit redis_rate.Limit,
	) (*redis_rate.Result, error)
}

type RateLimitConfig struct {
	Limit   redis_rate.Limit
	KeyFunc func(*http.Request) string
	// Scope labels rejections in metrics; defaults to "global".
	Scope string
}

// RateLimiter counts requests in Redis and drops to an in-process token
// bucket per key whenever Redis errors, so limits stay in force during an
// outage.
type RateLimiter struct {
	store   Allower
	local   *localLimiter
	limit   redis_rate.Limit
	keyFunc func(*http.Request) string
	scope   string
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	return newRateLimiter(redis_rate.NewLimiter(rdb), cfg)
}

func newRateLimiter(store Allower, cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		store:   store,
		local:   sharedLocal(),
		limit:   cfg.Limit,
		keyFunc: cfg.KeyFunc,
		scope:   cfg.Scope,
	}
	if rl.keyFunc == nil {
		rl.keyFunc = KeyByIP
	}
	if rl.scope == "" {
		rl.scope = "global"
	}
	return rl
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl.enforce(w, r, rl.limit, next)
	})
}

// TieredRateLimiter limits authenticated callers by membership tier. It must
// run after Authenticator; unknown or missing tiers get the standard limit.
func TieredRateLimiter(
	rdb *redis.Client,
	tiers map[string]config.TierLimit,
) func(http.Handler) http.Handler {
	return tieredRateLimiter(redis_rate.NewLimiter(rdb), tiers)
}

func tieredRateLimiter(
	store Allower,
	tiers map[string]config.TierLimit,
) func(http.Handler) http.Handler {
	rl := newRateLimiter(store, RateLimitConfig{KeyFunc: KeyByUser, Scope: "tier"})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tier := GetUserTier(r.Context())
			tl, ok := tiers[tier]
			if !ok {
				tier = forum.TierStandard
				tl = tiers[forum.TierStandard]
			}

			w.Header().Set("X-RateLimit-Tier", tier)
			rl.enforce(w, r, PerMinute(tl.RequestsPerMinute, tl.Burst), next)
		})
	}
}

func (rl *RateLimiter) enforce(
	w http.ResponseWriter,
	r *http.Request,
	limit redis_rate.Limit,
	next http.Handler,
) {
	key := rl.keyFunc(r)

	backend := "redis"
	res, err := rl.store.Allow(r.Context(), key, limit)
	if err != nil {
		slog.Warn("rate limit store unavailable, counting locally",
			"scope", rl.scope,
			"error", err,
		)
		backend = "local"
		res = rl.local.allow(key, limit)
	}

	writeLimitHeaders(w.Header(), res, limit)

	if res.Allowed > 0 {
		next.ServeHTTP(w, r)
		return
	}

	metrics.RateLimitedTotal.WithLabelValues(rl.scope, backend).Inc()

	wait := max(1, int(math.Ceil(res.RetryAfter.Seconds())))
	w.Header().Set("Retry-After", strconv.Itoa(wait))
	core.JSONError(w, core.RateLimitedError(wait))
}

func writeLimitHeaders(h http.Header, res *redis_rate.Result, limit redis_rate.Limit) {
	reset := int(math.Ceil(res.ResetAfter.Seconds()))

	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Unix()+int64(reset), 10))
	h.Set("RateLimit-Policy", fmt.Sprintf("%d;w=%d", limit.Rate, int(limit.Period.Seconds())))
	h.Set("RateLimit", fmt.Sprintf("%d;t=%d", res.Remaining, reset))
}

func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + clientIP(r)
}

// KeyByUser keys signed-in callers by user id and everyone else by address.
func KeyByUser(r *http.Request) string {
	if id := GetUserID(r.Context()); id != "" {
		return "ratelimit:user:" + id
	}
	return KeyByIP(r)
}

// KeyByUserAndEndpoint gives each route its own budget, with path ids
// collapsed so /reports/a and /reports/b share one.
func KeyByUserAndEndpoint(r *http.Request) string {
	return KeyByUser(r) + ":" + r.Method + ":" + normalizeEndpoint(r.URL.Path)
}

// clientIP trusts the last X-Forwarded-For hop, which is the one our own
// proxy appended.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(xff[strings.LastIndex(xff, ",")+1:])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func normalizeEndpoint(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if looksLikeID(seg) {
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

func looksLikeID(seg string) bool {
	if strings.Contains(seg, "@") {
		return true
	}
	if _, err := strconv.ParseUint(seg, 10, 64); err == nil {
		return true
	}
	if len(seg) != 36 {
		return false
	}
	_, err := uuid.Parse(seg)
	return err == nil
}

const (
	localBucketCap = 10_000
	localBucketTTL = 2 * time.Hour
)

// localLimiter holds one token bucket per key and limit. Idle buckets age
// out of the LRU.
type localLimiter struct {
	mu      sync.Mutex
	buckets *expirable.LRU[string, *rate.Limiter]
}

var sharedLocal = sync.OnceValue(func() *localLimiter {
	return &localLimiter{
		buckets: expirable.NewLRU[string, *rate.Limiter](localBucketCap, nil, localBucketTTL),
	}
})

func (l *localLimiter) allow(key string, limit redis_rate.Limit) *redis_rate.Result {
	interval := limit.Period / time.Duration(max(limit.Rate, 1))
	bucketKey := fmt.Sprintf("%s|%d/%s/%d", key, limit.Rate, limit.Period, limit.Burst)

	l.mu.Lock()
	bucket, ok := l.buckets.Get(bucketKey)
	if !ok {
		bucket = rate.NewLimiter(rate.Every(interval), limit.Burst)
		l.buckets.Add(bucketKey, bucket)
	}
	l.mu.Unlock()

	now := time.Now()
	res := &redis_rate.Result{
		Limit:      limit,
		RetryAfter: -1,
		ResetAfter: interval,
	}
	if bucket.AllowN(now, 1) {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}
	res.Remaining = max(0, int(bucket.TokensAt(now)))
	return res
}

func PerMinute(requests, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: requests, Burst: burst, Period: time.Minute}
}

func PerHour(requests, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: requests, Burst: burst, Period: time.Hour}
}
