package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// chromeCandidates は環境ごとに異なるChromium実行ファイル名の候補です。
var chromeCandidates = []string{
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"chrome",
}

// ChromeRenderer はヘッドレスChromiumによるHTML→PDF変換アダプターです。
// 実行ファイルは初回利用時に一度だけ候補から解決し、以後はキャッシュを使います。
type ChromeRenderer struct {
	chromePath string
	timeout    time.Duration

	resolveOnce sync.Once
	resolved    string
	resolveErr  error
}

// NewChromeRenderer はChromeRendererを作成します。
// chromePath が空の場合はPATH上の候補から自動解決します。
func NewChromeRenderer(chromePath string, timeout time.Duration) *ChromeRenderer {
	return &ChromeRenderer{
		chromePath: chromePath,
		timeout:    timeout,
	}
}

// RenderDocuments は docs の各HTMLを1件ずつ順番にPDFへ変換し、outDir へ出力します。
// 出力ファイル名は検出順を保つよう連番を前置します。生成したPDFのパスを出力順で返します。
func (r *ChromeRenderer) RenderDocuments(ctx context.Context, docs []string, outDir string) ([]string, error) {
	binary, err := r.resolveChrome()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create render output dir: %w", err)
	}

	rendered := make([]string, 0, len(docs))
	for i, doc := range docs {
		outPath := filepath.Join(outDir, renderedName(i, doc))
		if err := r.renderOne(ctx, binary, doc, outPath); err != nil {
			return nil, err
		}
		rendered = append(rendered, outPath)
	}
	return rendered, nil
}

func (r *ChromeRenderer) renderOne(ctx context.Context, binary, docPath, outPath string) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	absDoc, err := filepath.Abs(docPath)
	if err != nil {
		return fmt.Errorf("failed to resolve document path %s: %w", docPath, err)
	}

	args := []string{
		"--headless",
		"--disable-gpu",
		"--no-sandbox",
		"--no-pdf-header-footer",
		"--print-to-pdf=" + outPath,
		"file://" + absDoc,
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("PDF変換に失敗しました (%s): %v: %s",
			filepath.Base(docPath), err, strings.TrimSpace(output.String()))
	}

	// Chromiumは失敗してもexit 0を返すことがあるため、出力の実在を確認する
	if info, statErr := os.Stat(outPath); statErr != nil || info.Size() == 0 {
		return fmt.Errorf("PDF変換の出力が生成されませんでした (%s): %s",
			filepath.Base(docPath), strings.TrimSpace(output.String()))
	}
	return nil
}

// renderedName は出力PDF名を組み立てます。連番の前置により、
// サブディレクトリ間で同名のドキュメントが衝突せず、辞書順が検出順と一致します。
func renderedName(index int, docPath string) string {
	stem := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	return fmt.Sprintf("%04d_%s.pdf", index+1, stem)
}

// resolveChrome は候補を優先順に一度だけ探索し、結果をキャッシュします。
func (r *ChromeRenderer) resolveChrome() (string, error) {
	r.resolveOnce.Do(func() {
		candidates := chromeCandidates
		if r.chromePath != "" {
			candidates = append([]string{r.chromePath}, candidates...)
		}
		for _, name := range candidates {
			path, err := exec.LookPath(name)
			if err == nil {
				r.resolved = path
				return
			}
		}
		r.resolveErr = newError("TOOL_MISSING",
			fmt.Sprintf("HTMLのPDF変換に必要なChromium/Chromeが見つかりません（候補: %s）。Chromiumをインストールするか CHROME_PATH を設定してください。",
				strings.Join(candidates, ", ")),
			nil)
	})
	return r.resolved, r.resolveErr
}
