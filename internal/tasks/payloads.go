package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeResumeGenerate = "resume:generate"
)

// ResumeGeneratePayload 描述生成一份简历 PDF 所需的最小信息。
type ResumeGeneratePayload struct {
	ResumeID      uint   `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewResumeGenerateTask 构造一个新的简历生成任务。
func NewResumeGenerateTask(id uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ResumeGeneratePayload{
		ResumeID:      id,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumeGenerate, payload), nil
}
