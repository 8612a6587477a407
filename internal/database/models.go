package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SessionRecord 是会话快照的持久化形态。核心只产出快照，
// 由 HTTP 层在每条消息处理后 best-effort 写入。
type SessionRecord struct {
	gorm.Model
	SessionID string         `gorm:"uniqueIndex;size:64"`
	UserData  datatypes.JSON `gorm:"type:jsonb"`
	LastState string         `gorm:"size:32"`
	Template  string         `gorm:"size:64"`
	Progress  float64
}

// 简历生成状态。
const (
	ResumeStatusPending   = "pending"
	ResumeStatusCompleted = "completed"
	ResumeStatusFailed    = "failed"
)

// Resume 表示一次简历生成请求及其产物。
type Resume struct {
	gorm.Model
	SessionID string         `gorm:"index;size:64"`
	UserData  datatypes.JSON `gorm:"type:jsonb"`
	Template  string         `gorm:"size:64"`
	Status    string         `gorm:"size:32"`
	PdfUrl    string         `gorm:"size:512"`
	ATSReport datatypes.JSON `gorm:"type:jsonb"`
}
