// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/doc-binder/internal/archive"
	"github.com/yourusername/doc-binder/internal/config"
	"github.com/yourusername/doc-binder/internal/convert"
	"github.com/yourusername/doc-binder/internal/jobs"
	"github.com/yourusername/doc-binder/internal/storage"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// 入出力ディレクトリはジョブ実行前に必ず用意する
	store := storage.NewLocal(cfg.UploadDir, cfg.OutputDir)
	if err := store.EnsureDirs(); err != nil {
		log.Fatalf("Failed to prepare storage directories: %v", err)
	}

	// ジョブレジストリとワーカープールの初期化
	registry := jobs.NewRegistry()
	pool := jobs.NewPool(cfg.WorkerCount, log.Default())

	// 各アダプターとパイプラインサービスの組み立て
	extractor := archive.NewExtractor(cfg.UnrarPath, time.Duration(cfg.ExtractTimeoutSeconds)*time.Second)
	renderer := convert.NewChromeRenderer(cfg.ChromePath, time.Duration(cfg.RenderTimeoutSeconds)*time.Second)
	merger := convert.NewPDFMerger()
	service := convert.NewService(cfg, registry, store, extractor, renderer, merger, pool, log.Default())

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()
	router.MaxMultipartMemory = cfg.MaxFileSize

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
	}
	router.Use(cors.New(corsConfig))

	// ルーティングの設定
	setupRoutes(router, service, registry, store)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s (mode: %s, workers: %d)", addr, cfg.GinMode, cfg.WorkerCount)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "doc-binder-api",
		"version": "0.1.0",
	})
}

// setupRoutes は API グループの配線を行います。
func setupRoutes(router *gin.Engine, service *convert.Service, registry *jobs.Registry, store *storage.Local) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	api := router.Group("/api")
	{
		api.POST("/jobs", convert.ProcessHandler(service))
		api.GET("/jobs", convert.JobListHandler(registry))
		api.GET("/jobs/:id", convert.JobStatusHandler(registry))
		api.GET("/download/:filename", convert.DownloadHandler(store))

		api.POST("/convert", convert.ConvertHandler(service))
		api.POST("/merge", convert.MergeHandler(service))
	}
}
