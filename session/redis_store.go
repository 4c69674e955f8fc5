package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tripflow:session:"

// RedisStore 基于 Redis 的会话存储，适合多实例部署。
// 会话体存为 JSON 串并带 TTL；活跃时间额外记在有序集合里做索引，
// Cleanup 按索引淘汰空闲会话。
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore 用注入的客户端创建会话存储。ttl<=0 表示不设过期。
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Connect 按连接参数创建客户端并验证连通性。
func Connect(ctx context.Context, addr, password string, db, poolSize int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return NewRedisStore(client, ttl), nil
}

func (s *RedisStore) sessionKey(id string) string { return redisKeyPrefix + "data:" + id }
func (s *RedisStore) indexKey() string            { return redisKeyPrefix + "index" }

func (s *RedisStore) Create(ctx context.Context, sess *Session) (string, error) {
	normalizeNew(sess)
	if err := s.write(ctx, sess); err != nil {
		return "", err
	}
	return sess.SessionID, nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取会话失败: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("解析会话失败: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Update(ctx context.Context, sess *Session) error {
	exists, err := s.client.Exists(ctx, s.sessionKey(sess.SessionID)).Result()
	if err != nil {
		return fmt.Errorf("检查会话失败: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	sess.LastActive = time.Now()
	return s.write(ctx, sess)
}

func (s *RedisStore) write(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.sessionKey(sess.SessionID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(sess.LastActive.UnixMilli()),
		Member: sess.SessionID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入会话失败: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	removed, err := s.client.Del(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("删除会话失败: %w", err)
	}
	s.client.ZRem(ctx, s.indexKey(), sessionID)
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]*Session, error) {
	// 活跃时间降序
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("读取会话索引失败: %w", err)
	}

	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if err == ErrNotFound {
			// 会话体已过期但索引残留，顺手清掉
			s.client.ZRem(ctx, s.indexKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

func (s *RedisStore) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	ids, err := s.client.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("查询过期会话失败: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.sessionKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("清理会话失败: %w", err)
	}
	return len(ids), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
