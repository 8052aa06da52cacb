package jobs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound は存在しないジョブIDが指定された場合に返されます。
var ErrNotFound = errors.New("job not found")

// Registry はジョブ状態をプロセスメモリ上に保持します。
// レコードはプロセスの生存期間中は削除されず、再起動で失われます。
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
	now     func() time.Time
}

// NewRegistry は空のRegistryを作成します。
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// Create は新しいジョブを pending 状態で登録し、IDを返します。
// IDはUUIDv7（ミリ秒タイムスタンプ＋乱数）のため、同一ミリ秒内の連続呼び出しでも衝突しません。
func (r *Registry) Create(kind Kind, inputFiles []string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate job id: %w", err)
	}

	record := &Record{
		ID:         id.String(),
		Kind:       kind,
		Status:     StatusPending,
		Progress:   0,
		InputFiles: append([]string(nil), inputFiles...),
		CreatedAt:  r.now().UTC(),
	}
	if kind == KindFullProcess {
		record.Steps = &Steps{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return record.ID, nil
}

// Get はジョブのスナップショットを返します。
func (r *Registry) Get(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return snapshot(record), true
}

// List は全ジョブを作成日時の降順（新しい順）で返します。
// 作成日時が同一の場合はIDで順序を固定します。
func (r *Registry) List() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, snapshot(record))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Patch は部分更新で変更するフィールドのみを指名します。
// nil のフィールドは既存値を保持します。
type Patch struct {
	Status     *Status
	Progress   *int
	OutputFile *string
	Error      *string
	Step       *StepName
}

// Apply はPatchをコピーオンライトで適用します。
// 更新はRegistryのロック下で一括反映されるため、読み手が途中状態を観測することはありません。
func (r *Registry) Apply(id string, patch Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := snapshot(current)
	if err := applyPatch(&next, patch); err != nil {
		return err
	}
	r.records[id] = &next
	return nil
}

// MarkProcessing はジョブを processing 状態へ遷移させます。
func (r *Registry) MarkProcessing(id string, progress int) error {
	status := StatusProcessing
	return r.Apply(id, Patch{Status: &status, Progress: &progress})
}

// SetProgress は進捗のみを更新します。
func (r *Registry) SetProgress(id string, progress int) error {
	return r.Apply(id, Patch{Progress: &progress})
}

// MarkStep は段階完了フラグと進捗を同時に更新します。
func (r *Registry) MarkStep(id string, step StepName, progress int) error {
	return r.Apply(id, Patch{Step: &step, Progress: &progress})
}

// MarkDone はジョブ完了時の情報を保存します。
func (r *Registry) MarkDone(id string, outputFile string) error {
	status := StatusCompleted
	progress := 100
	cleared := ""
	return r.Apply(id, Patch{
		Status:     &status,
		Progress:   &progress,
		OutputFile: &outputFile,
		Error:      &cleared,
	})
}

// MarkFailed はジョブ失敗時の情報を保存します。
func (r *Registry) MarkFailed(id string, message string) error {
	status := StatusFailed
	return r.Apply(id, Patch{Status: &status, Error: &message})
}

func applyPatch(record *Record, patch Patch) error {
	if patch.Status != nil {
		if !isValidTransition(record.Status, *patch.Status) {
			return fmt.Errorf("invalid status transition: %s -> %s", record.Status, *patch.Status)
		}
		record.Status = *patch.Status
	}
	if patch.Progress != nil {
		record.Progress = clampProgress(record.Progress, *patch.Progress)
	}
	if patch.OutputFile != nil {
		record.OutputFile = *patch.OutputFile
	}
	if patch.Error != nil {
		record.Error = *patch.Error
	}
	if patch.Step != nil {
		if err := markStep(record, *patch.Step); err != nil {
			return err
		}
	}
	return nil
}

// isValidTransition は pending → processing → {completed, failed} の状態機械を強制します。
func isValidTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		// completed / failed は終端
		return false
	}
}

// markStep は extract → convert → merge の完了順序を強制します。
func markStep(record *Record, step StepName) error {
	if record.Steps == nil {
		return fmt.Errorf("job %s (%s) does not track steps", record.ID, record.Kind)
	}
	switch step {
	case StepExtract:
		record.Steps.Extract = true
	case StepConvert:
		if !record.Steps.Extract {
			return fmt.Errorf("step convert requires extract to be completed first")
		}
		record.Steps.Convert = true
	case StepMerge:
		if !record.Steps.Convert {
			return fmt.Errorf("step merge requires convert to be completed first")
		}
		record.Steps.Merge = true
	default:
		return fmt.Errorf("unknown step: %s", step)
	}
	return nil
}

// clampProgress は進捗を0〜100へ丸め、単一実行内での後退を防ぎます。
func clampProgress(current, next int) int {
	if next < current {
		return current
	}
	if next > 100 {
		return 100
	}
	if next < 0 {
		return 0
	}
	return next
}

func snapshot(record *Record) Record {
	out := *record
	out.InputFiles = append([]string(nil), record.InputFiles...)
	if record.Steps != nil {
		steps := *record.Steps
		out.Steps = &steps
	}
	return out
}
