package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// dailyUploadKey 生成按自然日滚动的上传配额键。
func dailyUploadKey(sessionID string, now time.Time) string {
	return fmt.Sprintf("photo_uploads:%s:%s", sessionID, now.Format("20060102"))
}

// registerDailyUpload 递增会话当日的上传计数并返回新值。
// 计数键在首次写入时设置 24 小时过期。
func registerDailyUpload(ctx context.Context, client redisRateCounter, sessionID string) (int64, error) {
	key := dailyUploadKey(sessionID, time.Now())
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, 24*time.Hour).Err()
	}
	return count, nil
}
