package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// FileWriteTool saves text into the data directory. Filenames are flattened
// so the model cannot write outside the sandbox.
type FileWriteTool struct {
	saveDir string
	now     func() time.Time
}

// NewFileWriteTool returns a FileWriteTool rooted at dir.
func NewFileWriteTool(dir string) *FileWriteTool {
	return &FileWriteTool{saveDir: dir, now: time.Now}
}

func (t *FileWriteTool) Name() string {
	return "write_file"
}

func (t *FileWriteTool) Description() string {
	return `将文本内容保存到文件。
当用户说以下内容时使用：
- 帮我记下来
- 保存这段话
- 写入文件
- 记录一下
- 把这个存起来`
}

func (t *FileWriteTool) Parameters() []Param {
	return []Param{
		{
			Name:        "content",
			Type:        "string",
			Description: "要保存的文本内容",
			Required:    true,
		},
		{
			Name:        "filename",
			Type:        "string",
			Description: "文件名（不含路径），留空则自动生成时间戳命名",
			Required:    false,
			Default:     "",
		},
	}
}

func (t *FileWriteTool) Execute(_ context.Context, args map[string]any) Result {
	content := stringArg(args, "content", "")
	if content == "" {
		return Result{Success: false, Error: "保存文件需要提供 content"}
	}

	filename := filepath.Base(stringArg(args, "filename", ""))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		filename = fmt.Sprintf("%d.txt", t.now().Unix())
	}
	if !strings.HasSuffix(filename, ".txt") {
		filename += ".txt"
	}

	if err := os.MkdirAll(t.saveDir, 0o755); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	savePath := filepath.Join(t.saveDir, filename)
	if err := os.WriteFile(savePath, []byte(content), 0o644); err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	return Result{Success: true, Data: map[string]any{
		"message":  "文本已保存",
		"path":     savePath,
		"filename": filename,
		"length":   utf8.RuneCountInString(content),
	}}
}

// FileReadTool reads text files from within an allowed directory.
type FileReadTool struct {
	allowedDir string
}

// NewFileReadTool returns a FileReadTool restricted to dir.
func NewFileReadTool(dir string) *FileReadTool {
	return &FileReadTool{allowedDir: dir}
}

func (t *FileReadTool) Name() string {
	return "read_file"
}

func (t *FileReadTool) Description() string {
	return `读取文本文件内容。
当用户说以下内容时使用：
- 读取文件
- 打开那个文件
- 看看文件里写了什么
- 读一下 xxx.txt`
}

func (t *FileReadTool) Parameters() []Param {
	return []Param{
		{
			Name:        "filepath",
			Type:        "string",
			Description: "文件路径",
			Required:    true,
		},
	}
}

func (t *FileReadTool) Execute(_ context.Context, args map[string]any) Result {
	path := stringArg(args, "filepath", "")
	if path == "" {
		return Result{Success: false, Error: "读取文件需要提供 filepath"}
	}
	if !t.allowed(path) {
		return Result{Success: false, Error: "不允许访问该路径: " + path}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Success: false, Error: "文件不存在: " + path}
		}
		return Result{Success: false, Error: err.Error()}
	}

	return Result{Success: true, Data: map[string]any{
		"filepath": path,
		"content":  string(raw),
		"length":   utf8.RuneCount(raw),
	}}
}

func (t *FileReadTool) allowed(path string) bool {
	rel, err := filepath.Rel(t.allowedDir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
