/* Copyright (c) 2025 ZaphyrRobin
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv string
	TZ     string

	LinearAPIKey string
	LinearAPIURL string

	HTTPTimeout    time.Duration
	WorkersHistory int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" { return def }
	return v
}

func atoi(key string, def int) int {
	v := os.Getenv(key)
	if v == "" { return def }
	i, err := strconv.Atoi(v)
	if err != nil { return def }
	return i
}

func dur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" { return def }
	d, err := time.ParseDuration(v)
	if err != nil { return def }
	return d
}

func Load() Config {
	cfg := Config{
		AppEnv: getenv("APP_ENV", "dev"),
		TZ:     getenv("APP_TZ", ""),

		LinearAPIKey: getenv("LINEAR_API_KEY", ""),
		LinearAPIURL: getenv("LINEAR_API_URL", "https://api.linear.app/graphql"),

		HTTPTimeout:    dur("HTTP_TIMEOUT", 15*time.Second),
		WorkersHistory: atoi("WORKERS_HISTORY", 6),
	}

	if cfg.TZ != "" {
		if loc, err := time.LoadLocation(cfg.TZ); err == nil {
			time.Local = loc
		} else {
			log.Printf("warning: cannot load TZ %s: %v", cfg.TZ, err)
		}
	}
	return cfg
}
