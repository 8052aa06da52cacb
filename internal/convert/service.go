// Package convert はHTMLアーカイブから結合PDFを生成するパイプラインと、
// そのHTTPハンドラーを提供します。
package convert

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/yourusername/doc-binder/internal/config"
	"github.com/yourusername/doc-binder/internal/jobs"
	"github.com/yourusername/doc-binder/internal/storage"
)

// Extractor はアーカイブ展開アダプターのインターフェースです。
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// Renderer はHTML→PDF変換アダプターのインターフェースです。
type Renderer interface {
	RenderDocuments(ctx context.Context, docs []string, outDir string) ([]string, error)
}

// Merger はPDF結合アダプターのインターフェースです。
type Merger interface {
	MergeDir(pdfDir, outPath string) error
	MergeFiles(files []string, outPath string) error
}

// Submitter はバックグラウンド実行へのタスク投入先です。
type Submitter interface {
	Submit(task func())
}

// Service はジョブの受付とパイプライン実行を担います。
type Service struct {
	cfg       *config.Config
	registry  *jobs.Registry
	store     *storage.Local
	extractor Extractor
	renderer  Renderer
	merger    Merger
	submitter Submitter
	logger    *log.Logger
}

// NewService はServiceを作成します。
func NewService(
	cfg *config.Config,
	registry *jobs.Registry,
	store *storage.Local,
	extractor Extractor,
	renderer Renderer,
	merger Merger,
	submitter Submitter,
	logger *log.Logger,
) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		cfg:       cfg,
		registry:  registry,
		store:     store,
		extractor: extractor,
		renderer:  renderer,
		merger:    merger,
		submitter: submitter,
		logger:    logger,
	}
}

// archiveMIMEs は受け入れるアーカイブ拡張子と期待するMIMEタイプの対応です。
var archiveMIMEs = map[string]string{
	".zip": "application/zip",
	".rar": "application/x-rar-compressed",
}

// StartProcessJob はアップロードされたアーカイブを検証・保存し、full-processジョブを
// 作成してパイプラインをバックグラウンドへ投入します。レスポンスはジョブIDのみで、
// 処理の完了は待ちません。検証エラーの場合、ジョブは作成されません。
func (s *Service) StartProcessJob(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", newError("INVALID_INPUT", "アーカイブファイルを選択してください。", nil)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	wantMIME, ok := archiveMIMEs[ext]
	if !ok {
		return "", newError("INVALID_INPUT", "対応しているアーカイブ形式は .zip / .rar です。", nil)
	}
	if file.Size > s.cfg.MaxFileSize {
		return "", newError("LIMIT_EXCEEDED",
			fmt.Sprintf("ファイルサイズが上限（%dバイト）を超えています。", s.cfg.MaxFileSize), nil)
	}
	if err := sniffMIME(file, wantMIME); err != nil {
		return "", err
	}

	jobID, err := s.registry.Create(jobs.KindFullProcess, []string{file.Filename})
	if err != nil {
		return "", err
	}

	archivePath, err := s.store.SaveUpload(file, jobID+ext)
	if err != nil {
		s.failJob(jobID, fmt.Errorf("アップロードファイルの保存に失敗しました: %w", err))
		return "", err
	}

	s.submitter.Submit(func() {
		if runErr := s.ProcessArchive(context.Background(), jobID, archivePath); runErr != nil {
			s.logger.Printf("job %s failed: %v", jobID, runErr)
		}
	})
	return jobID, nil
}

// StartConvertJob はHTMLファイル群を受け取り、convertジョブを投入します。
func (s *Service) StartConvertJob(ctx context.Context, files []*multipart.FileHeader) (string, error) {
	if err := validateUploadSet(files, docExtensions, "HTMLファイル（.html / .htm）", s.cfg.MaxFileSize); err != nil {
		return "", err
	}

	jobID, err := s.registry.Create(jobs.KindConvert, originalNames(files))
	if err != nil {
		return "", err
	}
	if err := s.stageUploads(jobID, files); err != nil {
		s.failJob(jobID, err)
		return "", err
	}

	s.submitter.Submit(func() {
		if runErr := s.RunConvert(context.Background(), jobID); runErr != nil {
			s.logger.Printf("job %s failed: %v", jobID, runErr)
		}
	})
	return jobID, nil
}

// StartMergeJob はPDFファイル群を受け取り、mergeジョブを投入します。
// 結合順はアップロード順です。
func (s *Service) StartMergeJob(ctx context.Context, files []*multipart.FileHeader) (string, error) {
	pdfOnly := map[string]bool{".pdf": true}
	if err := validateUploadSet(files, pdfOnly, "PDFファイル", s.cfg.MaxFileSize); err != nil {
		return "", err
	}

	jobID, err := s.registry.Create(jobs.KindMerge, originalNames(files))
	if err != nil {
		return "", err
	}
	if err := s.stageUploads(jobID, files); err != nil {
		s.failJob(jobID, err)
		return "", err
	}

	s.submitter.Submit(func() {
		if runErr := s.RunMerge(context.Background(), jobID); runErr != nil {
			s.logger.Printf("job %s failed: %v", jobID, runErr)
		}
	})
	return jobID, nil
}

// stageUploads はアップロードファイルをジョブ専用のステージングディレクトリへ、
// 受信順が辞書順に一致する連番付きの名前で保存します。
func (s *Service) stageUploads(jobID string, files []*multipart.FileHeader) error {
	dir := s.stagingDirFor(jobID)
	for i, file := range files {
		name := fmt.Sprintf("%04d_%s", i+1, filepath.Base(file.Filename))
		if _, err := s.store.SaveUploadTo(file, dir, name); err != nil {
			return fmt.Errorf("アップロードファイルの保存に失敗しました (%s): %w", file.Filename, err)
		}
	}
	return nil
}

// failJob は失敗を記録します。記録自体の失敗はログに残すのみです。
func (s *Service) failJob(jobID string, err error) {
	if regErr := s.registry.MarkFailed(jobID, err.Error()); regErr != nil {
		s.logger.Printf("failed to record failure job=%s: %v", jobID, regErr)
	}
}

func sniffMIME(file *multipart.FileHeader, want string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	detected, err := mimetype.DetectReader(src)
	if err != nil {
		return fmt.Errorf("failed to detect content type: %w", err)
	}
	if !detected.Is(want) {
		return newError("INVALID_INPUT",
			fmt.Sprintf("ファイルの内容が拡張子と一致しません（検出: %s）。", detected.String()), nil)
	}
	return nil
}

func validateUploadSet(files []*multipart.FileHeader, allowed map[string]bool, label string, maxSize int64) error {
	if len(files) == 0 {
		return newError("INVALID_INPUT", label+"を選択してください。", nil)
	}
	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !allowed[ext] {
			return newError("INVALID_INPUT",
				fmt.Sprintf("%sのみアップロードできます（received: %s）。", label, file.Filename), nil)
		}
		if file.Size > maxSize {
			return newError("LIMIT_EXCEEDED",
				fmt.Sprintf("ファイルサイズが上限（%dバイト）を超えています: %s", maxSize, file.Filename), nil)
		}
	}
	return nil
}

func originalNames(files []*multipart.FileHeader) []string {
	names := make([]string, len(files))
	for i, file := range files {
		names[i] = file.Filename
	}
	return names
}
