package utils

import (
	"github.com/redis/go-redis/v9"

	"streetview-randomizer/internal/logger"
)

// RedisOptionsFromEnv：由 REDIS_HOST/REDIS_PORT/REDIS_PASS/REDIS_DB 构造连接参数
// 约束：REDIS_DB 解析失败或为负时回退到 0。
func RedisOptionsFromEnv() *redis.Options {
	addr := getenv("REDIS_HOST", "127.0.0.1") + ":" + getenv("REDIS_PORT", "6379")
	db := getenvInt("REDIS_DB", 0)
	if db < 0 {
		db = 0
	}
	return &redis.Options{Addr: addr, Password: getenv("REDIS_PASS", ""), DB: db}
}

// OpenRedisFromEnv opens a client for the oracle cache.
func OpenRedisFromEnv() *redis.Client {
	opt := RedisOptionsFromEnv()
	logger.L().Debug("redis_env", "addr", opt.Addr, "db", opt.DB)
	return redis.NewClient(opt)
}
