package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CaptureFunc grabs the current screen as image bytes. It is injected by
// the host process; a headless deployment leaves it nil.
type CaptureFunc func(ctx context.Context) ([]byte, error)

// ScreenshotTool captures the screen and saves it under the data directory.
type ScreenshotTool struct {
	saveDir string
	capture CaptureFunc
	now     func() time.Time
}

// NewScreenshotTool returns a ScreenshotTool. capture may be nil.
func NewScreenshotTool(dir string, capture CaptureFunc) *ScreenshotTool {
	return &ScreenshotTool{saveDir: dir, capture: capture, now: time.Now}
}

func (t *ScreenshotTool) Name() string {
	return "screenshot"
}

func (t *ScreenshotTool) Description() string {
	return `截取当前屏幕并保存为图片。
当用户说以下内容时使用：
- 截个图
- 帮我截屏
- 保存一下屏幕
- 看看我的屏幕`
}

func (t *ScreenshotTool) Parameters() []Param {
	return []Param{
		{
			Name:        "filename",
			Type:        "string",
			Description: "保存的文件名（不含路径），留空则自动生成时间戳命名",
			Required:    false,
			Default:     "",
		},
	}
}

func (t *ScreenshotTool) Execute(ctx context.Context, args map[string]any) Result {
	if t.capture == nil {
		return Result{Success: false, Error: "当前环境不支持截图"}
	}

	raw, err := t.capture(ctx)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	filename := filepath.Base(stringArg(args, "filename", ""))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		filename = fmt.Sprintf("screenshot_%s.png", t.now().Format("20060102_150405"))
	}
	if !strings.HasSuffix(filename, ".png") && !strings.HasSuffix(filename, ".jpg") && !strings.HasSuffix(filename, ".jpeg") {
		filename += ".png"
	}

	if err := os.MkdirAll(t.saveDir, 0o755); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	savePath := filepath.Join(t.saveDir, filename)
	if err := os.WriteFile(savePath, raw, 0o644); err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	return Result{Success: true, Data: map[string]any{
		"message":  "截图已保存",
		"path":     savePath,
		"filename": filename,
	}}
}
