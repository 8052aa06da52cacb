package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RunConvert はconvertジョブを実行します。ステージング済みのHTMLを1件ずつPDFへ変換し、
// 成果物としてZIPにまとめます。full-processと異なり段階フラグは持ちません。
func (s *Service) RunConvert(ctx context.Context, jobID string) error {
	staging := s.stagingDirFor(jobID)
	pdfDir := s.workspaceFor(jobID).pdfDir

	err := s.runConvert(ctx, jobID, staging, pdfDir)
	if err != nil {
		s.failJob(jobID, err)
	}
	s.cleanup(jobID, staging, pdfDir)
	return err
}

func (s *Service) runConvert(ctx context.Context, jobID, staging, pdfDir string) error {
	if err := s.registry.MarkProcessing(jobID, 10); err != nil {
		return err
	}

	docs, err := DiscoverDocuments(staging)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return newError("NO_DOCUMENTS", "変換対象のHTMLドキュメントが見つかりませんでした。", nil)
	}

	rendered, err := s.renderer.RenderDocuments(ctx, docs, pdfDir)
	if err != nil {
		return err
	}
	if err := s.registry.SetProgress(jobID, 70); err != nil {
		return err
	}

	outputFile := convertedFilename(jobID)
	if err := createZip(s.store.OutputPath(outputFile), rendered); err != nil {
		return err
	}
	return s.completeJob(jobID, outputFile, false)
}

// RunMerge はmergeジョブを実行します。ステージング済みのPDFをアップロード順のまま結合します。
func (s *Service) RunMerge(ctx context.Context, jobID string) error {
	staging := s.stagingDirFor(jobID)

	err := s.runMerge(jobID, staging)
	if err != nil {
		s.failJob(jobID, err)
	}
	s.cleanup(jobID, staging)
	return err
}

func (s *Service) runMerge(jobID, staging string) error {
	if err := s.registry.MarkProcessing(jobID, 10); err != nil {
		return err
	}

	files, err := stagedPDFs(staging)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return newError("NO_DOCUMENTS", "結合対象のPDFが見つかりませんでした。", nil)
	}
	if err := s.registry.SetProgress(jobID, 70); err != nil {
		return err
	}

	outputFile := mergedFilename(jobID)
	if err := s.merger.MergeFiles(files, s.store.OutputPath(outputFile)); err != nil {
		return err
	}
	return s.completeJob(jobID, outputFile, false)
}

// stagedPDFs はステージングディレクトリ内のPDFを連番順（＝アップロード順）で返します。
func stagedPDFs(staging string) ([]string, error) {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return nil, fmt.Errorf("ステージングディレクトリを読み取れませんでした: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			files = append(files, filepath.Join(staging, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
