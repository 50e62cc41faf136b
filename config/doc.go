// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// A .env file, when present, is loaded into the environment first, and a few
// environment variables (PORT, CORS_ORIGINS, NATS_URL, NATS_SUBJECT_PREFIX,
// LOG_NATS_SUBJECTS, METRICS_ADDR, QUERY_CACHE_SIZE, IMPORT_CHUNK_ROWS)
// override the file.
package config
