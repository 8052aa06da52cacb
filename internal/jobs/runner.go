// Package jobs はジョブの状態管理とバックグラウンド実行を提供します。
package jobs

import (
	"context"
	"log"
	"sync"
)

// Pool は固定数のワーカーでジョブを実行する有界ワーカープールです。
// Submit はジョブの完了を待たずに即座に返るため、HTTPリクエスト側をブロックしません。
type Pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	logger *log.Logger

	closeOnce sync.Once
}

// NewPool はワーカー数 workers のPoolを作成して起動します。
func NewPool(workers int, logger *log.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = log.Default()
	}

	p := &Pool{
		tasks:  make(chan func(), workers*4),
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

// run は1タスクを実行します。panicはここで回収し、プロセス全体を巻き込みません。
func (p *Pool) run(task func()) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Printf("job panicked: %v", rec)
		}
	}()
	task()
}

// Submit はタスクを投入します。キューが満杯の場合は空くまで待ちます。
func (p *Pool) Submit(task func()) {
	if task == nil {
		return
	}
	p.tasks <- task
}

// Shutdown は新規投入を締め切り、実行中のタスクの完了を待ちます。
// ctx が先に期限切れになった場合は待機を打ち切ります。
func (p *Pool) Shutdown(ctx context.Context) error {
	p.closeOnce.Do(func() {
		close(p.tasks)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
