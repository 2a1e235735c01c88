// Package middleware provides per-client rate limiting for the HTTP API.
//
// # Overview
//
// Every request is keyed by the client IP (first X-Forwarded-For hop,
// then X-Real-IP, then the connection address) and checked against a
// Limiter. Rejected requests receive 429 with a JSON error body and a
// Retry-After header.
//
// # Limiters
//
// RateLimiter: in-memory token bucket, limits are per instance
//
//	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
//
// DistributedRateLimiter: Redis fixed window shared by all instances
//
//	limiter := middleware.NewDistributedRateLimiter(redisClient, nil, "")
//
// Either is wrapped the same way:
//
//	rl := middleware.NewRateLimitMiddleware(limiter, "api", metrics, logger)
//	router.Use(rl.Handler)
//
// # Defaults
//
// 100 requests per IP every 15 minutes. Limiter errors (for example Redis
// being unreachable) let the request through and log a warning.
package middleware
