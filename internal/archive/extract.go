// Package archive はアップロードされたアーカイブの展開アダプターを提供します。
// ZIPはGo標準ライブラリで展開し、RARは外部ツール（unrar / bsdtar）に委譲します。
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ToolMissingError はRAR展開に必要な外部ツールが1つも見つからない場合のエラーです。
// ジョブの失敗理由として、不足ツール名と導入ヒントをそのまま提示できる文面を持ちます。
type ToolMissingError struct {
	Candidates []string
}

func (e *ToolMissingError) Error() string {
	return fmt.Sprintf(
		"RARの展開に必要な外部ツールが見つかりません（候補: %s）。`sudo apt-get install unrar` などでインストールしてください。",
		strings.Join(e.Candidates, ", "),
	)
}

// rarTool は解決済みのRAR展開コマンドを表します。
type rarTool struct {
	path string
	kind string // "unrar" | "bsdtar"
}

// Extractor はアーカイブ展開アダプターです。
// RAR用の外部ツールは初回利用時に一度だけ解決し、以後はキャッシュを使います。
type Extractor struct {
	unrarPath string
	timeout   time.Duration

	resolveOnce sync.Once
	tool        rarTool
	resolveErr  error
}

// NewExtractor はExtractorを作成します。
// unrarPath が空の場合はPATH上の候補から自動解決します。
func NewExtractor(unrarPath string, timeout time.Duration) *Extractor {
	return &Extractor{
		unrarPath: unrarPath,
		timeout:   timeout,
	}
}

// Extract はアーカイブを destDir へ展開します。
// 対応形式は .zip（標準）と .rar（外部ツールが必要）です。
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) error {
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return fmt.Errorf("failed to create extraction dir: %w", err)
	}

	switch strings.ToLower(filepath.Ext(archivePath)) {
	case ".zip":
		return extractZip(archivePath, destDir)
	case ".rar":
		return e.extractRAR(ctx, archivePath, destDir)
	default:
		return fmt.Errorf("対応していないアーカイブ形式です: %s", filepath.Ext(archivePath))
	}
}

func extractZip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("ZIPファイルを開けませんでした: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if err := extractZipEntry(file, destDir); err != nil {
			return err
		}
	}
	return nil
}

func extractZipEntry(file *zip.File, destDir string) error {
	// zip-slip対策: 展開先ディレクトリの外へ出るエントリは拒否する
	target := filepath.Join(destDir, filepath.Clean(file.Name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("不正なエントリパスを含むZIPです: %s", file.Name)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o750)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", file.Name, err)
	}

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("ZIPエントリを開けませんでした (%s): %w", file.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("ZIPエントリの展開に失敗しました (%s): %w", file.Name, err)
	}
	return nil
}

func (e *Extractor) extractRAR(ctx context.Context, archivePath, destDir string) error {
	tool, err := e.resolveRARTool()
	if err != nil {
		return err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var args []string
	switch tool.kind {
	case "bsdtar":
		args = []string{"-xf", archivePath, "-C", destDir}
	default:
		args = []string{"x", "-o+", "-y", archivePath, destDir + string(os.PathSeparator)}
	}

	cmd := exec.CommandContext(ctx, tool.path, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("RARの展開に失敗しました (%s): %v: %s", tool.kind, err, strings.TrimSpace(output.String()))
	}
	return nil
}

// resolveRARTool は候補コマンドを優先順に一度だけ探索し、結果をキャッシュします。
func (e *Extractor) resolveRARTool() (rarTool, error) {
	e.resolveOnce.Do(func() {
		candidates := e.candidates()
		for _, name := range candidates {
			path, err := exec.LookPath(name)
			if err != nil {
				continue
			}
			kind := "unrar"
			if strings.Contains(filepath.Base(path), "bsdtar") {
				kind = "bsdtar"
			}
			e.tool = rarTool{path: path, kind: kind}
			return
		}
		e.resolveErr = &ToolMissingError{Candidates: candidates}
	})
	return e.tool, e.resolveErr
}

func (e *Extractor) candidates() []string {
	if e.unrarPath != "" {
		return []string{e.unrarPath, "unrar", "bsdtar"}
	}
	return []string{"unrar", "bsdtar"}
}
