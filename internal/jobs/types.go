package jobs

import "time"

// Kind はジョブの種別を表します。
type Kind string

const (
	KindConvert     Kind = "convert"
	KindMerge       Kind = "merge"
	KindFullProcess Kind = "full-process"
)

// Status はジョブの実行状態を表します。
// pending → processing → completed | failed の順でのみ遷移し、
// completed / failed は終端状態です。
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Steps はfull-processジョブの各段階の完了状態を保持します。
// extract → convert → merge の順でのみ true になり、元に戻ることはありません。
type Steps struct {
	Extract bool `json:"extract"`
	Convert bool `json:"convert"`
	Merge   bool `json:"merge"`
}

// Record はジョブの現在状態を表します。
type Record struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Status     Status    `json:"status"`
	Progress   int       `json:"progress"`
	InputFiles []string  `json:"inputFiles"`
	OutputFile string    `json:"outputFile,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	Steps      *Steps    `json:"steps,omitempty"`
}

// StepName はStepsの各フラグを指す名前です。
type StepName string

const (
	StepExtract StepName = "extract"
	StepConvert StepName = "convert"
	StepMerge   StepName = "merge"
)
