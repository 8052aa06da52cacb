package convert

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// createZip は files をアーカイブのルート直下へ格納したZIPを outputPath に作成します。
func createZip(outputPath string, files []string) error {
	out, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("failed to create zip: %w", err)
	}
	defer out.Close()

	writer := zip.NewWriter(out)
	defer writer.Close()

	for _, file := range files {
		if err := addZipEntry(writer, file); err != nil {
			return err
		}
	}
	return nil
}

func addZipEntry(writer *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer src.Close()

	entry, err := writer.Create(filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to add zip entry %s: %w", path, err)
	}
	if _, err := io.Copy(entry, src); err != nil {
		return fmt.Errorf("failed to write zip entry %s: %w", path, err)
	}
	return nil
}
