package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFMerger はpdfcpuによるPDF結合アダプターです。
type PDFMerger struct{}

// NewPDFMerger はPDFMergerを作成します。
func NewPDFMerger() *PDFMerger {
	return &PDFMerger{}
}

// MergeDir はディレクトリ内の全PDFを辞書順で1つのPDFへ結合します。
func (m *PDFMerger) MergeDir(pdfDir, outPath string) error {
	entries, err := os.ReadDir(pdfDir)
	if err != nil {
		return fmt.Errorf("PDFディレクトリを読み取れませんでした: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			files = append(files, filepath.Join(pdfDir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("結合対象のPDFが見つかりませんでした: %s", pdfDir)
	}
	sort.Strings(files)

	return m.MergeFiles(files, outPath)
}

// MergeFiles は与えられた順序のままPDFを結合します。
func (m *PDFMerger) MergeFiles(files []string, outPath string) error {
	if len(files) == 0 {
		return fmt.Errorf("結合対象のPDFが指定されていません")
	}
	if err := pdfapi.MergeCreateFile(files, outPath, false, nil); err != nil {
		return fmt.Errorf("PDFの結合に失敗しました: %w", err)
	}
	return nil
}
