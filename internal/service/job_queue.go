package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/buzznfinds/internal/db"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

var ErrJobNotFound = errors.New("generation job not found")

const defaultJobPollInterval = 10 * time.Second

// Generator 执行一次文章生成，GenerationService 是默认实现。
type Generator interface {
	GenerateAndSave(ctx context.Context, req GenerationRequest) (*db.Blog, error)
}

// JobQueue 把生成请求持久化到 generation_jobs 表，进程重启后不会丢失。
type JobQueue struct {
	db          *gorm.DB
	delay       time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewJobQueue 创建任务队列；delay 为入队到可执行之间的等待时间。
func NewJobQueue(gdb *gorm.DB, delay time.Duration, maxAttempts int) *JobQueue {
	if delay < 0 {
		delay = 0
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &JobQueue{db: gdb, delay: delay, maxAttempts: maxAttempts, now: time.Now}
}

// Enqueue 保存一条待执行的生成任务。
func (q *JobQueue) Enqueue(ctx context.Context, req GenerationRequest) (*db.GenerationJob, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	job := db.GenerationJob{
		Title:       title,
		CTAType:     strings.TrimSpace(req.CTAType),
		CTALink:     strings.TrimSpace(req.CTALink),
		Image:       strings.TrimSpace(req.Image),
		Status:      db.JobStatusPending,
		MaxAttempts: q.maxAttempts,
		RunAt:       q.now().Add(q.delay),
	}
	if err := q.db.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, fmt.Errorf("enqueue generation job: %w", err)
	}
	log.Printf("Started: %s (job %d, runs at %s)", title, job.ID, job.RunAt.Format(time.RFC3339))
	return &job, nil
}

// Get 返回任务状态。
func (q *JobQueue) Get(ctx context.Context, id uint) (*db.GenerationJob, error) {
	var job db.GenerationJob
	if err := q.db.WithContext(ctx).First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

// Recover 把上次进程退出时仍处于 running 的任务放回队列。
func (q *JobQueue) Recover(ctx context.Context) (int64, error) {
	result := q.db.WithContext(ctx).Model(&db.GenerationJob{}).
		Where("status = ?", db.JobStatusRunning).
		Updates(map[string]any{"status": db.JobStatusPending, "started_at": nil})
	return result.RowsAffected, result.Error
}

// claim 领取一条到期任务；条件更新保证同一任务只会被一个执行者领取。
func (q *JobQueue) claim(ctx context.Context) (*db.GenerationJob, error) {
	now := q.now()
	for {
		var job db.GenerationJob
		err := q.db.WithContext(ctx).
			Where("status = ? AND run_at <= ?", db.JobStatusPending, now).
			Order("run_at asc").
			Order("id asc").
			First(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		result := q.db.WithContext(ctx).Model(&db.GenerationJob{}).
			Where("id = ? AND status = ?", job.ID, db.JobStatusPending).
			Updates(map[string]any{
				"status":     db.JobStatusRunning,
				"attempts":   gorm.Expr("attempts + ?", 1),
				"started_at": now,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 1 {
			job.Status = db.JobStatusRunning
			job.Attempts++
			job.StartedAt = &now
			return &job, nil
		}
	}
}

func (q *JobQueue) complete(ctx context.Context, job *db.GenerationJob, blogID uint) error {
	now := q.now()
	job.Status = db.JobStatusSucceeded
	job.BlogID = &blogID
	job.FinishedAt = &now
	job.LastError = ""
	return q.db.WithContext(ctx).Model(job).Updates(map[string]any{
		"status":      job.Status,
		"blog_id":     blogID,
		"finished_at": now,
		"last_error":  "",
	}).Error
}

// fail 在未达到最大次数时重新排队，否则标记为 failed。
func (q *JobQueue) fail(ctx context.Context, job *db.GenerationJob, cause error) error {
	now := q.now()
	updates := map[string]any{"last_error": truncateRunes(cause.Error(), 2000)}
	if job.Attempts >= job.MaxAttempts {
		job.Status = db.JobStatusFailed
		job.FinishedAt = &now
		updates["finished_at"] = now
	} else {
		job.Status = db.JobStatusPending
		job.RunAt = now
		updates["run_at"] = now
		updates["started_at"] = nil
	}
	updates["status"] = job.Status
	job.LastError = cause.Error()
	return q.db.WithContext(ctx).Model(job).Updates(updates).Error
}

// release 把被关闭流程打断的任务放回队列，本次领取不计入尝试次数。
func (q *JobQueue) release(ctx context.Context, job *db.GenerationJob) error {
	job.Status = db.JobStatusPending
	job.StartedAt = nil
	if job.Attempts > 0 {
		job.Attempts--
	}
	return q.db.WithContext(ctx).Model(job).Updates(map[string]any{
		"status":     job.Status,
		"attempts":   job.Attempts,
		"started_at": nil,
	}).Error
}

// JobRunner 通过 cron 定时轮询任务表并顺序执行到期任务。
type JobRunner struct {
	queue     *JobQueue
	generator Generator
	metrics   *Metrics
	interval  time.Duration

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func NewJobRunner(queue *JobQueue, generator Generator, interval time.Duration, metrics *Metrics) *JobRunner {
	if interval <= 0 {
		interval = defaultJobPollInterval
	}
	return &JobRunner{queue: queue, generator: generator, metrics: metrics, interval: interval}
}

// Start 先恢复中断的任务，再注册 @every 轮询；上一轮未结束时跳过本轮。
func (r *JobRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return errors.New("job runner already started")
	}

	recovered, err := r.queue.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recover generation jobs: %w", err)
	}
	if recovered > 0 {
		log.Printf("[JOB] re-queued %d interrupted jobs", recovered)
	}

	r.ctx, r.cancel = context.WithCancel(ctx)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc("@every "+r.interval.String(), r.tick); err != nil {
		r.cancel()
		return fmt.Errorf("schedule job runner: %w", err)
	}
	c.Start()
	r.cron = c
	log.Printf("[JOB] runner polling every %s", r.interval)
	return nil
}

// Stop 取消正在执行的任务并等待 cron 退出。
func (r *JobRunner) Stop() {
	r.mu.Lock()
	c := r.cron
	cancel := r.cancel
	r.cron = nil
	r.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
}

func (r *JobRunner) tick() {
	if _, err := r.RunDue(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[JOB] poll failed: %v", err)
	}
}

// RunDue 执行当前所有到期任务，返回处理的数量。
func (r *JobRunner) RunDue(ctx context.Context) (int, error) {
	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		job, err := r.queue.claim(ctx)
		if err != nil {
			return processed, err
		}
		if job == nil {
			return processed, nil
		}
		r.run(ctx, job)
		processed++
	}
}

func (r *JobRunner) run(ctx context.Context, job *db.GenerationJob) {
	log.Printf("[JOB] %d running attempt %d/%d: %s", job.ID, job.Attempts, job.MaxAttempts, job.Title)

	blog, err := r.generator.GenerateAndSave(ctx, GenerationRequest{
		Title:   job.Title,
		CTAType: job.CTAType,
		CTALink: job.CTALink,
		Image:   job.Image,
	})

	// 即使 ctx 已取消也要记录结果，避免任务停留在 running。
	persistCtx := context.WithoutCancel(ctx)
	if err != nil && ctx.Err() != nil {
		if updateErr := r.queue.release(persistCtx, job); updateErr != nil {
			log.Printf("[JOB] %d failed to re-queue after shutdown: %v", job.ID, updateErr)
			return
		}
		log.Printf("[JOB] %d interrupted, re-queued: %v", job.ID, err)
		return
	}
	if err != nil {
		if updateErr := r.queue.fail(persistCtx, job, err); updateErr != nil {
			log.Printf("[JOB] %d failed to record failure: %v", job.ID, updateErr)
		}
		r.metrics.ObserveJob(job.Status)
		log.Printf("[JOB] %d %s: %v", job.ID, job.Status, err)
		return
	}

	if updateErr := r.queue.complete(persistCtx, job, blog.ID); updateErr != nil {
		log.Printf("[JOB] %d failed to record success: %v", job.ID, updateErr)
	}
	r.metrics.ObserveJob(job.Status)
	log.Printf("[JOB] %d succeeded: %s", job.ID, blog.Slug)
}
