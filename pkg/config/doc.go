// Package config loads env-tagged configuration structs.
//
// It wraps github.com/joho/godotenv (optional .env files) and
// github.com/caarlos0/env/v11 (struct tag parsing). Every package in this
// module that needs settings exposes a Config struct with `env` and
// `envDefault` tags; the binary loads them with Load or MustLoad.
package config
