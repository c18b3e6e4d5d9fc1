package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NotifyChannel 返回某个打印任务的 Redis Pub/Sub 频道，API 的 WebSocket 订阅同一频道。
func NotifyChannel(jobID string) string {
	return "print_notify:" + jobID
}

// PrintNotifyMessage 是推送给前端的打印结果消息，字段名与前端解析保持一致。
type PrintNotifyMessage struct {
	Status         string   `json:"status"`
	JobID          string   `json:"job_id"`
	GroupID        string   `json:"group_id,omitempty"`
	CorrelationID  string   `json:"correlation_id"`
	ErrorCode      int      `json:"error_code"`
	ErrorMessage   string   `json:"error_message"`
	Outcome        string   `json:"outcome,omitempty"`
	Labels         int      `json:"labels,omitempty"`
	FirstNumber    int64    `json:"first_number,omitempty"`
	LastNumber     int64    `json:"last_number,omitempty"`
	BrokenLinks    []string `json:"broken_links,omitempty"`
	MissingColumns []string `json:"missing_columns,omitempty"`
}

// Publisher 是 Redis 发布能力的最小接口，*redis.Client 满足它。
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

func publishNotify(ctx context.Context, publisher Publisher, notify PrintNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := NotifyChannel(notify.JobID)
	if err := publisher.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
