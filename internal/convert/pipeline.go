package convert

import (
	"context"
	"fmt"

	"github.com/yourusername/doc-binder/internal/jobs"
)

// ProcessArchive はfull-processジョブの4段階パイプラインを実行します。
//
//	展開(30%) → 探索(40%) → 変換(70%) → 結合(100%)
//
// いずれかの段階で失敗した場合、ジョブは failed で確定し、後続の段階は実行されません。
// 失敗はジョブレコードに記録した上で呼び出し元へも返します（ログ出力用）。
// 作業ディレクトリの掃除は成功・失敗いずれの終端でもベストエフォートで行います。
func (s *Service) ProcessArchive(ctx context.Context, jobID, archivePath string) error {
	ws := s.workspaceFor(jobID)

	err := s.runPipeline(ctx, jobID, archivePath, ws)
	if err != nil {
		s.failJob(jobID, err)
	}
	s.cleanup(jobID, ws.extractDir, ws.pdfDir)
	return err
}

func (s *Service) runPipeline(ctx context.Context, jobID, archivePath string, ws workspace) error {
	if err := s.registry.MarkProcessing(jobID, 10); err != nil {
		return err
	}

	// 段階1: アーカイブ展開
	if err := s.extractor.Extract(ctx, archivePath, ws.extractDir); err != nil {
		return fmt.Errorf("アーカイブの展開に失敗しました: %w", err)
	}
	if err := s.registry.MarkStep(jobID, jobs.StepExtract, 30); err != nil {
		return err
	}

	// 段階2: ドキュメント探索
	docs, err := DiscoverDocuments(ws.extractDir)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return newError("NO_DOCUMENTS", "変換対象のHTMLドキュメントが見つかりませんでした。", nil)
	}
	if err := s.registry.SetProgress(jobID, 40); err != nil {
		return err
	}

	// 段階3: PDF変換
	if _, err := s.renderer.RenderDocuments(ctx, docs, ws.pdfDir); err != nil {
		return err
	}
	if err := s.registry.MarkStep(jobID, jobs.StepConvert, 70); err != nil {
		return err
	}

	// 段階4: PDF結合
	outputFile := mergedFilename(jobID)
	if err := s.merger.MergeDir(ws.pdfDir, s.store.OutputPath(outputFile)); err != nil {
		return err
	}

	// 完了状態は1つのPatchで原子的に反映する
	return s.completeJob(jobID, outputFile, true)
}

// completeJob はジョブを completed で確定します。withStep が真の場合はmerge段階も同時に立てます。
func (s *Service) completeJob(jobID, outputFile string, withStep bool) error {
	status := jobs.StatusCompleted
	progress := 100
	cleared := ""
	patch := jobs.Patch{
		Status:     &status,
		Progress:   &progress,
		OutputFile: &outputFile,
		Error:      &cleared,
	}
	if withStep {
		step := jobs.StepMerge
		patch.Step = &step
	}
	return s.registry.Apply(jobID, patch)
}

// cleanup は中間ディレクトリを削除します。失敗はログに残すのみで、
// 既に確定したジョブの状態には影響させません。
func (s *Service) cleanup(jobID string, dirs ...string) {
	for _, dir := range dirs {
		if err := removeDir(dir); err != nil {
			s.logger.Printf("cleanup failed job=%s dir=%s: %v", jobID, dir, err)
		}
	}
}
