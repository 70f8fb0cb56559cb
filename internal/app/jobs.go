package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/sitelens/internal/model"
)

type JobEventType string

const (
	JobEventStatus     JobEventType = "status"
	JobEventFastResult JobEventType = "fast_result"
	JobEventResult     JobEventType = "result"
)

// JobEvent is one progress message for a streaming analysis job. Fast-pass
// and final reports ride on the same channel so a consumer can render
// progressively without polling.
type JobEvent struct {
	JobID string       `json:"job_id"`
	Type  JobEventType `json:"type"`

	Status JobStatus `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`

	Report *model.AnalysisResult `json:"report,omitempty"`
}

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

type Job struct {
	ID        string        `json:"id"`
	URL       string        `json:"url"`
	Status    JobStatus     `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at,omitempty"`
	Events    chan JobEvent `json:"-"`
}

// jobSet is the mutex-guarded job registry plus cancel funcs.
type jobSet struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	cancels map[string]context.CancelFunc
}

func newJobSet() *jobSet {
	return &jobSet{
		jobs:    make(map[string]*Job),
		cancels: make(map[string]context.CancelFunc),
	}
}

func (js *jobSet) put(job *Job, cancel context.CancelFunc) {
	js.mu.Lock()
	js.jobs[job.ID] = job
	js.cancels[job.ID] = cancel
	js.mu.Unlock()
}

func (js *jobSet) get(id string) *Job {
	js.mu.Lock()
	defer js.mu.Unlock()
	return js.jobs[id]
}

func (js *jobSet) setStatus(id string, status JobStatus, errMsg string) {
	js.mu.Lock()
	if j, ok := js.jobs[id]; ok {
		j.Status = status
		j.Error = errMsg
		if status == JobDone || status == JobFailed || status == JobCanceled {
			j.EndedAt = time.Now().UTC()
		}
	}
	js.mu.Unlock()
}

func (js *jobSet) cancel(id string) {
	js.mu.Lock()
	cancel := js.cancels[id]
	js.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (js *jobSet) dropCancel(id string) {
	js.mu.Lock()
	delete(js.cancels, id)
	js.mu.Unlock()
}

// emit is a non-blocking send; events are dropped if the buffer is full
// rather than stalling the analysis.
func (j *Job) emit(ev JobEvent) {
	if j.Events == nil {
		return
	}
	select {
	case j.Events <- ev:
	default:
	}
}

// StartAnalysisJob runs the pipeline in the background and streams progress:
// a status event, the fast-pass report as soon as it exists, then the final
// report. The Events channel closes when the job ends.
func (o *Orchestrator) StartAnalysisJob(ctx context.Context, rawURL string, refresh bool) *Job {
	job := &Job{
		ID:        uuid.New().String(),
		URL:       rawURL,
		Status:    JobPending,
		StartedAt: time.Now().UTC(),
		Events:    make(chan JobEvent, 16),
	}

	jobCtx, cancel := context.WithCancel(ctx)
	o.jobs.put(job, cancel)

	job.emit(JobEvent{JobID: job.ID, Type: JobEventStatus, Status: JobPending})

	go func() {
		defer func() {
			o.jobs.dropCancel(job.ID)
			close(job.Events)
		}()

		o.jobs.setStatus(job.ID, JobRunning, "")
		job.emit(JobEvent{JobID: job.ID, Type: JobEventStatus, Status: JobRunning})

		fast, err := o.FastAnalysis(jobCtx, rawURL)
		if err != nil {
			o.finishJob(job, jobCtx, err)
			return
		}
		job.emit(JobEvent{JobID: job.ID, Type: JobEventFastResult, Report: fast})

		report, err := o.FullAnalysis(jobCtx, rawURL, refresh)
		if err != nil {
			o.finishJob(job, jobCtx, err)
			return
		}

		o.jobs.setStatus(job.ID, JobDone, "")
		job.emit(JobEvent{JobID: job.ID, Type: JobEventResult, Status: JobDone, Report: report})
	}()

	return job
}

func (o *Orchestrator) finishJob(job *Job, jobCtx context.Context, err error) {
	select {
	case <-jobCtx.Done():
		o.jobs.setStatus(job.ID, JobCanceled, jobCtx.Err().Error())
		job.emit(JobEvent{JobID: job.ID, Type: JobEventStatus, Status: JobCanceled, Error: jobCtx.Err().Error()})
	default:
		o.jobs.setStatus(job.ID, JobFailed, err.Error())
		job.emit(JobEvent{JobID: job.ID, Type: JobEventStatus, Status: JobFailed, Error: err.Error()})
	}
}

// GetJob returns the job with the given ID, or nil.
func (o *Orchestrator) GetJob(id string) *Job { return o.jobs.get(id) }

// CancelJob cancels a running job. Canceling an unknown or finished job is a
// no-op.
func (o *Orchestrator) CancelJob(id string) { o.jobs.cancel(id) }
