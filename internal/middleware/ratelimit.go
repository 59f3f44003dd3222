package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const rateLimitKeyPrefix = "ratelimit:"

// tokenBucketScript implements an atomic token bucket: refill based on elapsed
// time, then try to consume one token.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])      -- tokens per second
	local burst = tonumber(ARGV[2])     -- bucket capacity
	local now = tonumber(ARGV[3])       -- current time in seconds
	local ttl = tonumber(ARGV[4])       -- TTL in seconds

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	local elapsed = now - last_update
	tokens = math.min(burst, tokens + (elapsed * rate))

	local allowed = 0
	local retry_after = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate)
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after}
`)

// RateLimit limits requests per authenticated user (falling back to client IP)
// using a redis-backed token bucket. Requests are allowed through when redis
// is unavailable.
func RateLimit(client *redis.Client, perMinute, burst int, logger zerolog.Logger) func(http.Handler) http.Handler {
	ratePerSecond := float64(perMinute) / 60.0
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if client == nil || perMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := rateLimitKeyPrefix + limiterKey(r)
			res, err := tokenBucketScript.Run(r.Context(), client,
				[]string{key}, ratePerSecond, burst, time.Now().Unix(), 120).Int64Slice()
			if err != nil || len(res) != 2 {
				// Fail open
				logger.Warn().Err(err).Msg("rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}
			if res[0] != 1 {
				w.Header().Set("Retry-After", strconv.FormatInt(res[1], 10))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func limiterKey(r *http.Request) string {
	if userID, ok := UserIDFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(userID, 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
