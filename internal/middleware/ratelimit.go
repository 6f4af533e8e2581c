package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/farmlink/farmlink/internal/authctx"
)

// KeyFunc derives the subject a rate limit is counted against.
type KeyFunc func(c *fiber.Ctx) string

// RateLimit allows at most limit requests per key within each fixed window,
// counting in Redis. It is a no-op without Redis and fails open on cache errors.
func RateLimit(cache *redis.Client, scope string, limit int, window time.Duration, key KeyFunc) fiber.Handler {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := key(c)
		if subject == "" {
			subject = c.IP()
		}
		redisKey := "rl:" + scope + ":" + subject
		var (
			incr *redis.IntCmd
			ttl  *redis.DurationCmd
		)
		_, err := cache.Pipelined(c.UserContext(), func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(c.UserContext(), redisKey)
			ttl = pipe.TTL(c.UserContext(), redisKey)
			return nil
		})
		if err != nil {
			return c.Next()
		}
		// A counter without expiry would lock the subject out for good, so the
		// window is re-armed on every hit until Expire succeeds.
		if ttl.Val() < 0 {
			if err := cache.Expire(c.UserContext(), redisKey, window).Err(); err != nil {
				return c.Next()
			}
		}
		if incr.Val() > int64(limit) {
			return fiber.NewError(http.StatusTooManyRequests, "too many attempts, try again later")
		}
		return c.Next()
	}
}

// KeyByLoginName counts attempts per submitted user or bank name.
func KeyByLoginName(c *fiber.Ctx) string {
	var req struct {
		Name     string `json:"name"`
		BankName string `json:"bankName"`
	}
	_ = c.BodyParser(&req)
	if name := strings.TrimSpace(req.Name); name != "" {
		return name
	}
	return strings.TrimSpace(req.BankName)
}

// KeyByPrincipal counts attempts per authenticated principal.
func KeyByPrincipal(c *fiber.Ctx) string {
	if p := authctx.FromContext(c.UserContext()); p != nil {
		return p.Name
	}
	return ""
}
