package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/doc-binder/internal/jobs"
	"github.com/yourusername/doc-binder/internal/storage"
)

// ProcessService はアーカイブ処理ジョブの受付を提供します。
type ProcessService interface {
	StartProcessJob(ctx context.Context, file *multipart.FileHeader) (string, error)
}

// ConvertUploadService は変換のみジョブの受付を提供します。
type ConvertUploadService interface {
	StartConvertJob(ctx context.Context, files []*multipart.FileHeader) (string, error)
}

// MergeUploadService は結合のみジョブの受付を提供します。
type MergeUploadService interface {
	StartMergeJob(ctx context.Context, files []*multipart.FileHeader) (string, error)
}

// JobReader はジョブ状態の参照側インターフェースです。
// パイプライン実行とは切り離されており、レジストリの状態を観測するだけです。
type JobReader interface {
	Get(id string) (jobs.Record, bool)
	List() []jobs.Record
}

// OutputResolver は成果物ファイルの解決を提供します。
type OutputResolver interface {
	ResolveOutput(filename string) (string, int64, error)
}

// ProcessHandler は POST /api/jobs のハンドラーを返します。
// アーカイブを受け付けてジョブIDを即座に返し、処理はバックグラウンドで継続します。
func ProcessHandler(svc ProcessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("archive")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "multipart/form-data の archive フィールドでアーカイブを送信してください。",
			})
			return
		}

		jobID, err := svc.StartProcessJob(c.Request.Context(), file)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"jobId": jobID})
	}
}

// ConvertHandler は POST /api/convert のハンドラーを返します。
func ConvertHandler(svc ConvertUploadService) gin.HandlerFunc {
	return func(c *gin.Context) {
		files, ok := formFiles(c)
		if !ok {
			return
		}
		jobID, err := svc.StartConvertJob(c.Request.Context(), files)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"jobId": jobID})
	}
}

// MergeHandler は POST /api/merge のハンドラーを返します。
func MergeHandler(svc MergeUploadService) gin.HandlerFunc {
	return func(c *gin.Context) {
		files, ok := formFiles(c)
		if !ok {
			return
		}
		jobID, err := svc.StartMergeJob(c.Request.Context(), files)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"jobId": jobID})
	}
}

// JobListHandler は GET /api/jobs のハンドラーを返します。新しい順に全件返します。
func JobListHandler(reg JobReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"jobs": reg.List()})
	}
}

// JobStatusHandler は GET /api/jobs/:id のハンドラーを返します。
func JobStatusHandler(reg JobReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := strings.TrimSpace(c.Param("id"))
		if jobID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "jobId を指定してください。",
			})
			return
		}

		record, ok := reg.Get(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "JOB_NOT_FOUND",
				"message": "指定されたジョブは存在しません。",
			})
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

// DownloadHandler は GET /api/download/:filename のハンドラーを返します。
// 成果物ディレクトリ直下のファイルのみを解決し、パストラバーサルは拒否します。
func DownloadHandler(resolver OutputResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		filename := c.Param("filename")

		path, size, err := resolver.ResolveOutput(filename)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrInvalidFilename):
				c.JSON(http.StatusBadRequest, gin.H{
					"code":    "INVALID_INPUT",
					"message": "不正なファイル名です。",
				})
			case errors.Is(err, fs.ErrNotExist):
				c.JSON(http.StatusNotFound, gin.H{
					"code":    "FILE_NOT_FOUND",
					"message": "指定されたファイルが見つかりませんでした。",
				})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{
					"code":    "INTERNAL_ERROR",
					"message": "成果物の取得に失敗しました。",
				})
			}
			return
		}

		file, err := os.Open(path)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "成果物の読み込みに失敗しました。",
			})
			return
		}
		defer file.Close()

		contentType := "application/octet-stream"
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".pdf":
			contentType = "application/pdf"
		case ".zip":
			contentType = "application/zip"
		}

		encodedName := url.PathEscape(filename)
		c.Header("Content-Type", contentType)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", filename, encodedName))
		c.Header("Cache-Control", "no-store")
		c.DataFromReader(http.StatusOK, size, contentType, file, nil)
	}
}

func formFiles(c *gin.Context) ([]*multipart.FileHeader, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": "multipart/form-data でファイルを送信してください。",
		})
		return nil, false
	}

	files := form.File["files[]"]
	if len(files) == 0 {
		files = form.File["files"]
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": "アップロードされたファイルが見つかりません。",
		})
		return nil, false
	}
	return files, true
}

func respondWithError(c *gin.Context, err error) {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		status := http.StatusBadRequest
		switch apiErr.Code {
		case "LIMIT_EXCEEDED":
			status = http.StatusRequestEntityTooLarge
		case "TOOL_MISSING", "INTERNAL_ERROR":
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, gin.H{
			"code":    "REQUEST_CANCELED",
			"message": "リクエストがキャンセルされました。",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "サーバー内部でエラーが発生しました。",
		})
	}
}
