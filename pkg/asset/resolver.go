package asset

import (
	"fmt"
	"path"
	"strings"

	"github.com/shouni/go-utils/urlpath"
)

const (
	// DefaultImageDir は生成された画像を格納するデフォルトのディレクトリ名です。
	DefaultImageDir = "images"
	// DefaultSceneFileName はシーン画像の共通のベースファイル名です。
	DefaultSceneFileName = "scene.png"
	// DefaultProjectFileName はストーリーボードを書き出すデフォルトの JSON ファイル名です。
	DefaultProjectFileName = "storyboard.json"
)

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	return urlpath.ResolveOutputPath(baseDir, fileName)
}

// GenerateIndexedPath は、指定されたベースパスの拡張子の前に連番を挿入します。
// 例: "path/to/image.png", 1 -> "path/to/image_1.png"
func GenerateIndexedPath(basePath string, index int) (string, error) {
	return urlpath.GenerateIndexedPath(basePath, index)
}

// SceneObjectKey はランとシーン番号から画像の保存キーを生成します。
// 拡張子は MIME タイプから決めます。例: "run-1/images/scene_7.png"
func SceneObjectKey(runID string, sceneNumber int, mimeType string) (string, error) {
	if sceneNumber < 1 {
		return "", fmt.Errorf("シーン番号は1以上である必要があります: %d", sceneNumber)
	}
	base := strings.TrimSuffix(DefaultSceneFileName, path.Ext(DefaultSceneFileName)) + ExtensionFor(mimeType)
	name, err := GenerateIndexedPath(base, sceneNumber)
	if err != nil {
		return "", err
	}
	return path.Join(runID, DefaultImageDir, name), nil
}

// ExtensionFor は画像の MIME タイプに対応する拡張子を返します。
func ExtensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
