package convert

import (
	"fmt"
	"os"
	"path/filepath"
)

// workspace はジョブIDから決定的に導かれる作業ディレクトリの組です。
// ジョブごとに独立しているため、並行実行中のジョブ同士が衝突することはありません。
type workspace struct {
	jobID      string
	extractDir string // アーカイブ展開先（インバウンド側）
	pdfDir     string // 変換済みPDFの中間置き場（アウトバウンド側）
}

func (s *Service) workspaceFor(jobID string) workspace {
	return workspace{
		jobID:      jobID,
		extractDir: filepath.Join(s.store.UploadDir(), "extracted_"+jobID),
		pdfDir:     filepath.Join(s.store.OutputDir(), "pdfs_"+jobID),
	}
}

// stagingDirFor は convert / merge ジョブのアップロードファイル置き場です。
func (s *Service) stagingDirFor(jobID string) string {
	return filepath.Join(s.store.UploadDir(), "files_"+jobID)
}

// mergedFilename は完成PDFの公開ファイル名です。
func mergedFilename(jobID string) string {
	return fmt.Sprintf("merged_%s.pdf", jobID)
}

// convertedFilename は変換のみジョブの成果物（ZIP）の公開ファイル名です。
func convertedFilename(jobID string) string {
	return fmt.Sprintf("converted_%s.zip", jobID)
}

func removeDir(path string) error {
	if path == "" {
		return nil
	}
	return os.RemoveAll(path)
}
