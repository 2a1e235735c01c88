// Package config loads application configuration from environment variables.
//
// # Overview
//
// Variables may come from the process environment or from a .env file
// loaded with LoadDotEnv; the process environment wins. Every setting has a
// default except the database URL.
//
// # Variables
//
// Server settings:
//
//	MSC_PORT="8080"             # falls back to PORT
//	MSC_HEALTH_PORT="9090"
//	MSC_REQUEST_TIMEOUT="25s"
//	MSC_STATIC_DIR="./public"
//	MSC_SWAGGER_ENABLED="true"
//
// Storage settings:
//
//	MSC_DATABASE_URL="postgres://localhost/msc"   # falls back to DATABASE_URL
//	MSC_DATABASE_REPLICA_URLS="postgres://r1/msc,postgres://r2/msc"
//	MSC_AUTO_MIGRATE="false"
//	MSC_S3_BUCKET="msc-images"                    # falls back to AWS_S3_BUCKET_NAME
//	MSC_S3_REGION="us-east-1"                     # falls back to AWS_REGION
//	MSC_S3_ACCESS_KEY / MSC_S3_SECRET_KEY         # fall back to AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY
//	MSC_S3_ENDPOINT="http://minio:9000"
//	MSC_S3_PUBLIC_URL="https://cdn.example.com"
//
// Cache settings:
//
//	MSC_CACHE_ENABLED="true"
//	MSC_CACHE_TTL="1m"
//	MSC_REDIS_URL="redis://localhost:6379/0"
//
// Rate limiting and CORS:
//
//	MSC_RATE_LIMIT_ENABLED="true"
//	MSC_RATE_LIMIT_BACKEND="memory"   # memory or redis
//	MSC_RATE_LIMIT_REQUESTS="100"
//	MSC_RATE_LIMIT_WINDOW="15m"
//	MSC_CORS_ORIGINS="*"
//
// Observability settings:
//
//	MSC_LOG_LEVEL="info"  # debug, info, warn, error
//	MSC_METRICS_ENABLED="true"
//	MSC_OTEL_ENABLED="false"
//	MSC_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	if err := config.LoadDotEnv(".env"); err != nil {
//		log.Fatal(err)
//	}
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
package config
