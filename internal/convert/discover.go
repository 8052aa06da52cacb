package convert

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// docExtensions は変換対象ドキュメントの拡張子集合です（小文字で比較）。
var docExtensions = map[string]bool{
	".html": true,
	".htm":  true,
}

// DiscoverDocuments は root 以下を再帰的に走査し、HTMLドキュメントのフルパスを
// 辞書順で返します。シンボリックリンクのディレクトリは循環を避けるため辿りません。
// 一致するファイルが存在しない場合は空のスライスを返します（エラーではありません）。
func DiscoverDocuments(root string) ([]string, error) {
	var docs []string

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			// WalkDirはシンボリックリンクを辿らないが、対象からも明示的に外す
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		if docExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			docs = append(docs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("展開ディレクトリの走査に失敗しました: %w", err)
	}

	sort.Strings(docs)
	return docs, nil
}
