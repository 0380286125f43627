package service

import (
	"context"

	commonredis "crediflow-data/internal/common/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StateChangeEvent 状态变更事件（发布到 Redis Streams 供下游消费）
type StateChangeEvent struct {
	TenantID      int64  `json:"tenant_id"`
	RequestID     int64  `json:"request_id"`
	PreviousState string `json:"previous_state"`
	NewState      string `json:"new_state"`
	ActorID       int64  `json:"actor_id"`
	ActorRole     string `json:"actor_role"`
}

// EventPublisher 事件发布接口
// 发布失败不回滚主操作：审计已落库，事件是尽力而为的副作用
type EventPublisher interface {
	PublishStateChange(ctx context.Context, event StateChangeEvent) error
}

// RedisEventPublisher 基于 Redis Streams 的事件发布器
type RedisEventPublisher struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

// NewRedisEventPublisher 创建事件发布器
func NewRedisEventPublisher(client *redis.Client, stream string, logger *zap.Logger) *RedisEventPublisher {
	return &RedisEventPublisher{
		client: client,
		stream: stream,
		logger: logger,
	}
}

var _ EventPublisher = (*RedisEventPublisher)(nil)

// PublishStateChange 发布状态变更事件
func (p *RedisEventPublisher) PublishStateChange(ctx context.Context, event StateChangeEvent) error {
	id, err := commonredis.PublishJSONToStream(ctx, p.client, p.stream, event)
	if err != nil {
		return err
	}
	p.logger.Debug("State change event published",
		zap.String("stream", p.stream),
		zap.String("message_id", id),
		zap.Int64("request_id", event.RequestID),
	)
	return nil
}

// NoopEventPublisher 空实现（事件功能关闭或 Redis 不可用时使用）
type NoopEventPublisher struct{}

var _ EventPublisher = (*NoopEventPublisher)(nil)

func (NoopEventPublisher) PublishStateChange(ctx context.Context, event StateChangeEvent) error {
	return nil
}
