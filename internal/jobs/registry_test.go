package jobs

import (
	"sync"
	"testing"
	"time"
)

func TestCreateFullProcessRecord(t *testing.T) {
	r := NewRegistry()

	id, err := r.Create(KindFullProcess, []string{"a.zip"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty id")
	}

	record, ok := r.Get(id)
	if !ok {
		t.Fatalf("job %s not found after Create", id)
	}
	if record.Status != StatusPending {
		t.Fatalf("status = %s, want %s", record.Status, StatusPending)
	}
	if record.Progress != 0 {
		t.Fatalf("progress = %d, want 0", record.Progress)
	}
	if record.Steps == nil {
		t.Fatal("full-process job must track steps")
	}
	if record.Steps.Extract || record.Steps.Convert || record.Steps.Merge {
		t.Fatalf("steps must start false: %+v", record.Steps)
	}
	if len(record.InputFiles) != 1 || record.InputFiles[0] != "a.zip" {
		t.Fatalf("unexpected inputFiles: %#v", record.InputFiles)
	}
}

func TestCreateConvertHasNoSteps(t *testing.T) {
	r := NewRegistry()

	id, err := r.Create(KindConvert, []string{"a.html"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	record, _ := r.Get(id)
	if record.Steps != nil {
		t.Fatalf("convert job must not track steps: %+v", record.Steps)
	}
}

func TestConcurrentCreateUniqueIDs(t *testing.T) {
	r := NewRegistry()
	const n = 200

	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.Create(KindFullProcess, nil)
			if err != nil {
				t.Errorf("Create returned error: %v", err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate job id: %s", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct ids, got %d", n, len(seen))
	}
}

func TestListReturnsNewestFirst(t *testing.T) {
	r := NewRegistry()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	first, _ := r.Create(KindFullProcess, nil)
	second, _ := r.Create(KindFullProcess, nil)
	third, _ := r.Create(KindFullProcess, nil)

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 records, got %d", len(list))
	}
	want := []string{third, second, first}
	for i, id := range want {
		if list[i].ID != id {
			t.Fatalf("list[%d].ID = %s, want %s", i, list[i].ID, id)
		}
	}
}

func TestApplyPreservesUnnamedFields(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Create(KindFullProcess, []string{"in.zip"})

	if err := r.MarkProcessing(id, 10); err != nil {
		t.Fatalf("MarkProcessing returned error: %v", err)
	}
	progress := 40
	if err := r.Apply(id, Patch{Progress: &progress}); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	record, _ := r.Get(id)
	if record.Status != StatusProcessing {
		t.Fatalf("status reset by partial update: %s", record.Status)
	}
	if record.Progress != 40 {
		t.Fatalf("progress = %d, want 40", record.Progress)
	}
	if len(record.InputFiles) != 1 {
		t.Fatalf("inputFiles lost in partial update: %#v", record.InputFiles)
	}
}

func TestApplyUnknownJob(t *testing.T) {
	r := NewRegistry()
	progress := 10
	err := r.Apply("missing", Patch{Progress: &progress})
	if err == nil {
		t.Fatal("expected error for unknown job")
	}
}

func TestStatusTransitions(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Create(KindFullProcess, nil)

	// pending → completed は不正
	status := StatusCompleted
	if err := r.Apply(id, Patch{Status: &status}); err == nil {
		t.Fatal("expected error for pending -> completed")
	}

	if err := r.MarkProcessing(id, 10); err != nil {
		t.Fatalf("MarkProcessing returned error: %v", err)
	}
	if err := r.MarkFailed(id, "boom"); err != nil {
		t.Fatalf("MarkFailed returned error: %v", err)
	}

	// failed は終端
	status = StatusProcessing
	if err := r.Apply(id, Patch{Status: &status}); err == nil {
		t.Fatal("expected error for failed -> processing")
	}
}

func TestStepOrderingEnforced(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Create(KindFullProcess, nil)
	_ = r.MarkProcessing(id, 10)

	if err := r.MarkStep(id, StepConvert, 70); err == nil {
		t.Fatal("expected error for convert before extract")
	}
	if err := r.MarkStep(id, StepExtract, 30); err != nil {
		t.Fatalf("MarkStep(extract) returned error: %v", err)
	}
	if err := r.MarkStep(id, StepMerge, 100); err == nil {
		t.Fatal("expected error for merge before convert")
	}
	if err := r.MarkStep(id, StepConvert, 70); err != nil {
		t.Fatalf("MarkStep(convert) returned error: %v", err)
	}
	if err := r.MarkStep(id, StepMerge, 90); err != nil {
		t.Fatalf("MarkStep(merge) returned error: %v", err)
	}

	record, _ := r.Get(id)
	if !record.Steps.Extract || !record.Steps.Convert || !record.Steps.Merge {
		t.Fatalf("steps not all set: %+v", record.Steps)
	}
}

func TestStepsRejectedForConvertKind(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Create(KindConvert, nil)
	_ = r.MarkProcessing(id, 10)

	if err := r.MarkStep(id, StepExtract, 30); err == nil {
		t.Fatal("expected error marking steps on convert job")
	}
}

func TestProgressNeverRegresses(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Create(KindFullProcess, nil)
	_ = r.MarkProcessing(id, 10)

	if err := r.SetProgress(id, 70); err != nil {
		t.Fatalf("SetProgress returned error: %v", err)
	}
	if err := r.SetProgress(id, 40); err != nil {
		t.Fatalf("SetProgress returned error: %v", err)
	}

	record, _ := r.Get(id)
	if record.Progress != 70 {
		t.Fatalf("progress regressed: %d", record.Progress)
	}

	if err := r.SetProgress(id, 500); err != nil {
		t.Fatalf("SetProgress returned error: %v", err)
	}
	record, _ = r.Get(id)
	if record.Progress != 100 {
		t.Fatalf("progress = %d, want clamp to 100", record.Progress)
	}
}

func TestMarkDoneInvariants(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Create(KindMerge, nil)
	_ = r.MarkProcessing(id, 10)

	if err := r.MarkDone(id, "merged_"+id+".pdf"); err != nil {
		t.Fatalf("MarkDone returned error: %v", err)
	}

	record, _ := r.Get(id)
	if record.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", record.Status)
	}
	if record.Progress != 100 {
		t.Fatalf("progress = %d, want 100", record.Progress)
	}
	if record.OutputFile == "" {
		t.Fatal("outputFile must be set on completion")
	}
	if record.Error != "" {
		t.Fatalf("error must be cleared on completion: %q", record.Error)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Create(KindFullProcess, []string{"a.zip"})

	record, _ := r.Get(id)
	record.InputFiles[0] = "mutated"
	record.Steps.Extract = true

	fresh, _ := r.Get(id)
	if fresh.InputFiles[0] != "a.zip" {
		t.Fatal("Get must return an isolated copy of inputFiles")
	}
	if fresh.Steps.Extract {
		t.Fatal("Get must return an isolated copy of steps")
	}
}
