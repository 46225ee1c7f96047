package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeTextExtract = "text:extract"
)

// TextExtractPayload 描述从已上传源文件中抽取文本所需的信息。
type TextExtractPayload struct {
	ResumeID      uint   `json:"resume_id"`
	UserID        uint   `json:"user_id"`
	ObjectKey     string `json:"object_key"`
	ContentType   string `json:"content_type"`
	Filename      string `json:"filename"`
	CorrelationID string `json:"correlation_id"`
}

// NewTextExtractTask 构造一个新的文本抽取任务。
func NewTextExtractTask(p TextExtractPayload, opts ...asynq.Option) (*asynq.Task, error) {
	if p.ResumeID == 0 || p.UserID == 0 || p.ObjectKey == "" {
		return nil, fmt.Errorf("text extract payload is incomplete")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTextExtract, payload, opts...), nil
}

// ParseTextExtractPayload 解析任务负载。
func ParseTextExtractPayload(task *asynq.Task) (TextExtractPayload, error) {
	var p TextExtractPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("unmarshal payload: %w", err)
	}
	return p, nil
}
