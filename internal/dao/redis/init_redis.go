// Package redis 提供 Redis 客户端的初始化
package redis

import (
	"context"
	"fmt"
	"time"

	"securewave_server/internal/config"
	"securewave_server/pkg/constants"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Init 建立 Redis 连接并返回异步缓存服务实例
// 连接失败时记录警告并照常返回：缓存是旁路，主流程不依赖它
func Init() *RedisCache {
	conf := config.GetConfig()
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", conf.RedisConfig.Host, conf.RedisConfig.Port),
		Password: conf.RedisConfig.Password,
		DB:       conf.RedisConfig.Db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zap.L().Warn("redis ping failed, cache runs degraded", zap.Error(err))
	}

	return NewRedisCache(client, constants.CACHE_WORKER_NUM, constants.CACHE_TASK_CHAN_SIZE)
}
