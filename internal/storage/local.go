// Package storage はローカルファイルシステム上の入出力ディレクトリを管理します。
// インバウンド（アップロード受け入れ）とアウトバウンド（成果物）の2領域を持ち、
// アウトバウンドのファイル解決ではパストラバーサルを拒否します。
package storage

import (
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidFilename はディレクトリ外を指すファイル名が指定された場合に返されます。
var ErrInvalidFilename = fmt.Errorf("invalid filename")

// Local はプロセス相対の2ディレクトリ構成のローカルストレージです。
type Local struct {
	uploadDir string
	outputDir string
}

// NewLocal はLocalを作成します。ディレクトリの作成は EnsureDirs で行います。
func NewLocal(uploadDir, outputDir string) *Local {
	return &Local{
		uploadDir: uploadDir,
		outputDir: outputDir,
	}
}

// EnsureDirs は入出力ディレクトリが存在しない場合に作成します。
// ジョブ実行前に必ず呼び出されます。
func (l *Local) EnsureDirs() error {
	for _, dir := range []string{l.uploadDir, l.outputDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// UploadDir はインバウンドディレクトリのパスを返します。
func (l *Local) UploadDir() string { return l.uploadDir }

// OutputDir はアウトバウンドディレクトリのパスを返します。
func (l *Local) OutputDir() string { return l.outputDir }

// SaveUpload はアップロードされたファイルを storedName でインバウンドへ保存し、
// 保存先のパスを返します。
func (l *Local) SaveUpload(file *multipart.FileHeader, storedName string) (string, error) {
	return l.SaveUploadTo(file, l.uploadDir, storedName)
}

// SaveUploadTo はアップロードされたファイルを任意のディレクトリへ保存します。
// ディレクトリが存在しない場合は作成します。
func (l *Local) SaveUploadTo(file *multipart.FileHeader, dir, storedName string) (string, error) {
	if err := validateFilename(storedName); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	target := filepath.Join(dir, storedName)
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to store uploaded file: %w", err)
	}
	return target, nil
}

// OutputPath はアウトバウンド内のパスを組み立てます（存在確認はしません）。
func (l *Local) OutputPath(name string) string {
	return filepath.Join(l.outputDir, name)
}

// ResolveOutput はダウンロード対象のファイル名を検証し、実ファイルのパスとサイズを返します。
// アウトバウンドディレクトリ外を指す名前は ErrInvalidFilename、
// 存在しないファイルは fs.ErrNotExist を返します。
func (l *Local) ResolveOutput(filename string) (string, int64, error) {
	if err := validateFilename(filename); err != nil {
		return "", 0, err
	}

	path := filepath.Join(l.outputDir, filename)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", 0, fs.ErrNotExist
		}
		return "", 0, err
	}
	if info.IsDir() {
		return "", 0, fs.ErrNotExist
	}
	return path, info.Size(), nil
}

// validateFilename は親ディレクトリ参照やパス区切りを含む名前を拒否します。
func validateFilename(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrInvalidFilename
	}
	if strings.ContainsAny(name, `/\`) {
		return ErrInvalidFilename
	}
	if filepath.Base(name) != name {
		return ErrInvalidFilename
	}
	return nil
}
