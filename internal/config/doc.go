// Package config loads, normalizes, and validates hlsingest configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AWS_REGION, CLOUDFRONT_URL, and MONGO_URI. The Config value is built once at
// process start and handed to every component explicitly; nothing downstream
// reads the environment on its own.
package config
