// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// ファイル制限
	MaxFileSize int64 // アップロードアーカイブの最大サイズ（バイト）

	// ディレクトリ設定
	UploadDir string // アップロード受け入れ用ディレクトリ（インバウンド）
	OutputDir string // 成果物出力用ディレクトリ（アウトバウンド）

	// ジョブ実行設定
	WorkerCount int // パイプラインを実行するワーカー数

	// 外部ツール設定
	ChromePath string // Chromium/Chrome実行ファイルのパス（空の場合は候補から自動解決）
	UnrarPath  string // unrar実行ファイルのパス（空の場合は候補から自動解決）

	// タイムアウト設定（秒）
	ExtractTimeoutSeconds int // 展開処理1回あたりのタイムアウト
	RenderTimeoutSeconds  int // PDF変換1ファイルあたりのタイムアウト
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// ファイル制限
		MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 209715200), // 200MB

		// ディレクトリ設定
		UploadDir: getEnv("UPLOAD_DIR", "uploads"),
		OutputDir: getEnv("OUTPUT_DIR", "outputs"),

		// ジョブ実行設定
		WorkerCount: getEnvAsInt("WORKER_COUNT", 4),

		// 外部ツール設定
		ChromePath: getEnv("CHROME_PATH", ""),
		UnrarPath:  getEnv("UNRAR_PATH", ""),

		// タイムアウト設定
		ExtractTimeoutSeconds: getEnvAsInt("EXTRACT_TIMEOUT_SECONDS", 120),
		RenderTimeoutSeconds:  getEnvAsInt("RENDER_TIMEOUT_SECONDS", 120),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR must not be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR must not be empty")
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive (got %d)", c.WorkerCount)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive (got %d)", c.MaxFileSize)
	}
	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsInt64 は環境変数を64ビット整数として取得します。
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
