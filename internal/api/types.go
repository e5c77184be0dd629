package api

import "time"

// JobStatus enumerates the backend-owned job lifecycle. The backend drives
// every transition; this client only observes.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusExporting JobStatus = "exporting"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCanceled  JobStatus = "canceled"
)

// Terminal reports whether no further transition can occur from s.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// Cancelable reports whether a cancel request is meaningful for s.
func (s JobStatus) Cancelable() bool {
	return s == StatusQueued || s == StatusRunning
}

// Known reports whether s is one of the declared lifecycle values.
func (s JobStatus) Known() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusExporting, StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// Quality selects the reconstruction profile.
type Quality string

const (
	QualityFast Quality = "fast"
	QualityHigh Quality = "high"
)

// Output formats the backend can export.
const (
	FormatGLB  = "glb"
	FormatUSDZ = "usdz"
)

// LocalFile is a caller-owned candidate image. The orchestrator only reads it.
type LocalFile struct {
	Name        string
	Size        int64
	ContentType string
	Data        []byte
}

// UploadSlot is a single-use presigned write destination issued by the backend.
type UploadSlot struct {
	PutURL      string `json:"put_url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
}

// ImageRef is the durable handle to an uploaded image.
type ImageRef struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// JobParameters configures a job at creation time.
type JobParameters struct {
	Quality       Quality  `json:"quality"`
	TargetFormats []string `json:"target_formats"`
	WebhookURL    string   `json:"webhook_url,omitempty"`
}

// JobOutput is one exported artifact of a completed job.
type JobOutput struct {
	Format    string `json:"format"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes"`
}

// JobRecord mirrors the backend job resource.
type JobRecord struct {
	ID          string      `json:"id"`
	Status      JobStatus   `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	CostCredits float64     `json:"cost_estimate_credits"`
	Outputs     []JobOutput `json:"outputs"`
	Errors      []string    `json:"errors"`
}

// JobCreated is the response to job creation; status is always queued.
type JobCreated struct {
	ID          string    `json:"id"`
	Status      JobStatus `json:"status"`
	CostCredits float64   `json:"cost_estimate_credits"`
}

// PreviewResult is the outcome of pre-commit validation. The token authorizes
// exactly one checkout call and expires server-side.
type PreviewResult struct {
	OK              bool     `json:"ok"`
	Warnings        []string `json:"warnings"`
	PreviewToken    string   `json:"preview_token"`
	EstimateCredits float64  `json:"estimate_credits"`
	EstimateMinutes int      `json:"estimate_minutes"`
}

// CheckoutSession holds the payment redirect issued for a preview token.
type CheckoutSession struct {
	SessionURL string `json:"session_url"`
	SessionID  string `json:"session_id"`
}

// BatchRecord mirrors the backend batch resource.
type BatchRecord struct {
	BatchID       string      `json:"batch_id"`
	Status        string      `json:"status"`
	TotalJobs     int         `json:"total_jobs"`
	CompletedJobs int         `json:"completed_jobs"`
	FailedJobs    int         `json:"failed_jobs"`
	Jobs          []JobRecord `json:"jobs"`
}

// BatchCreate requests server-side batch expansion from a remote source.
type BatchCreate struct {
	Source     string         `json:"source"`
	URL        string         `json:"url"`
	OrgID      string         `json:"org_id"`
	Params     *JobParameters `json:"params,omitempty"`
	WebhookURL string         `json:"webhook_url,omitempty"`
}

// CreditBalance reports the organization's credit standing.
type CreditBalance struct {
	OrgID          string  `json:"org_id"`
	Balance        float64 `json:"balance"`
	UsageThisMonth float64 `json:"usage_this_month"`
}

// Estimate is the projected cost for a set of identical jobs.
type Estimate struct {
	TotalCredits        float64 `json:"total_credits"`
	PerJobCredits       float64 `json:"per_job_credits"`
	EstimatedMinutesPer int     `json:"estimated_minutes_per_job"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
	OrgID       string `json:"org_id,omitempty"`
}

// APIKey is returned on key creation; the secret is only visible here.
type APIKey struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

// Health is the backend liveness snapshot.
type Health struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}
