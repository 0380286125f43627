package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// StateChangeNotification 状态变更通知
type StateChangeNotification struct {
	TenantID      int64  `json:"tenant_id"`
	RequestID     int64  `json:"request_id"`
	PreviousState string `json:"previous_state"`
	NewState      string `json:"new_state"`
	AssignedTo    int64  `json:"assigned_to,omitempty"`
	Note          string `json:"note,omitempty"`
}

// Notifier 通知接口
// 与 EventPublisher 同理：通知失败只记日志，不影响已落库的主操作
type Notifier interface {
	NotifyStateChange(ctx context.Context, notification StateChangeNotification) error
}

// MailerResponse 邮件服务响应
type MailerResponse struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// MailerClient 邮件通知服务客户端
type MailerClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewMailerClient 创建邮件通知客户端
func NewMailerClient(baseURL, apiKey string, logger *zap.Logger) *MailerClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("X-Api-Key", apiKey)
	}

	return &MailerClient{
		httpClient: client,
		logger:     logger,
	}
}

var _ Notifier = (*MailerClient)(nil)

// NotifyStateChange 推送状态变更通知到邮件服务
func (c *MailerClient) NotifyStateChange(ctx context.Context, notification StateChangeNotification) error {
	var response MailerResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(notification).
		SetResult(&response).
		Post("/notifications/credit-request-state")

	if err != nil {
		c.logger.Error("Mailer API call failed",
			zap.Error(err),
			zap.Int64("request_id", notification.RequestID),
		)
		return fmt.Errorf("failed to call mailer API: %w", err)
	}

	if resp.IsError() || !response.Ok {
		c.logger.Error("Mailer API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("error", response.Error),
		)
		return fmt.Errorf("mailer API error: %s (status: %d)", response.Error, resp.StatusCode())
	}

	return nil
}

// NoopNotifier 空实现（通知功能关闭时使用）
type NoopNotifier struct{}

var _ Notifier = (*NoopNotifier)(nil)

func (NoopNotifier) NotifyStateChange(ctx context.Context, notification StateChangeNotification) error {
	return nil
}
