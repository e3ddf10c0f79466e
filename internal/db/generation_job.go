package db

import "time"

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// GenerationJob 记录一次异步文章生成请求，进程重启后仍可继续执行。
// RunAt 之前的任务不会被领取；Attempts 达到 MaxAttempts 后标记为 failed。
type GenerationJob struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:500;not null" json:"title"`
	CTAType     string     `gorm:"size:100" json:"ctaType"`
	CTALink     string     `gorm:"size:255" json:"ctaLink"`
	Image       string     `gorm:"type:text" json:"image"`
	Status      string     `gorm:"size:20;index;default:pending" json:"status"`
	Attempts    int        `gorm:"default:0" json:"attempts"`
	MaxAttempts int        `gorm:"default:1" json:"maxAttempts"`
	RunAt       time.Time  `gorm:"index" json:"runAt"`
	LastError   string     `gorm:"type:text" json:"lastError,omitempty"`
	BlogID      *uint      `json:"blogId,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TableName 指定自定义表名。
func (GenerationJob) TableName() string {
	return "generation_jobs"
}
