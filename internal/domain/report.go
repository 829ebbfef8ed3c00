package domain

import (
	"time"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const (
	ErrCodeMissingDir    = "missing_dir"
	ErrCodeScanFailed    = "scan_failed"
	ErrCodeOutputFailed  = "output_failed"
	ErrCodeCanceled      = "canceled"
	ErrCodeConfigInvalid = "config_invalid"
)

// RunReport 是一次运行的结果（--json 时输出到 stdout）。
type RunReport struct {
	Dir    string `json:"dir"`
	Output string `json:"output"`
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Count     int      `json:"count"`
	TotalSize int64    `json:"total_size"`
	Files     []string `json:"files"`
}

// Fail 把报告标记为失败。
func (r *RunReport) Fail(code, msg string) {
	r.Status = StatusFailed
	r.ErrorCode = code
	r.ErrorMsg = msg
}

// Failed 报告是否失败。
func (r RunReport) Failed() bool { return r.Status == StatusFailed }

// Finalize 统一时间为 UTC，并由 Files 推导 Count；
// Files 为 nil 时规范为空切片（JSON 输出 [] 而不是 null）。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Files == nil {
		r.Files = []string{}
	}
	r.Count = len(r.Files)
	if r.Status == "" {
		r.Status = StatusOK
	}
}
