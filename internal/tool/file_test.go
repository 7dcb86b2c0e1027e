package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	writeTool := NewFileWriteTool(dir)
	readTool := NewFileReadTool(dir)

	result := writeTool.Execute(context.Background(), map[string]any{
		"content":  "备忘：周五聚餐",
		"filename": "note",
	})
	if !result.Success {
		t.Fatalf("expected success, got %s", result.Error)
	}
	data := result.Data.(map[string]any)
	if data["filename"] != "note.txt" {
		t.Fatalf("expected .txt suffix, got %v", data["filename"])
	}

	read := readTool.Execute(context.Background(), map[string]any{"filepath": data["path"]})
	if !read.Success {
		t.Fatalf("expected success, got %s", read.Error)
	}
	if read.Data.(map[string]any)["content"] != "备忘：周五聚餐" {
		t.Fatalf("unexpected content: %v", read.Data)
	}
}

func TestFileWriteFlattensPath(t *testing.T) {
	dir := t.TempDir()
	writeTool := NewFileWriteTool(dir)

	result := writeTool.Execute(context.Background(), map[string]any{
		"content":  "内容",
		"filename": "../escape",
	})
	if !result.Success {
		t.Fatalf("expected success, got %s", result.Error)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); err != nil {
		t.Fatalf("expected file inside sandbox: %v", err)
	}
}

func TestFileReadOutsideSandbox(t *testing.T) {
	dir := t.TempDir()
	readTool := NewFileReadTool(filepath.Join(dir, "data"))

	outside := filepath.Join(dir, "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	result := readTool.Execute(context.Background(), map[string]any{"filepath": outside})
	if result.Success {
		t.Fatalf("expected failure outside sandbox")
	}
}

func TestFileReadMissing(t *testing.T) {
	dir := t.TempDir()
	readTool := NewFileReadTool(dir)

	result := readTool.Execute(context.Background(), map[string]any{"filepath": filepath.Join(dir, "missing.txt")})
	if result.Success {
		t.Fatalf("expected failure for missing file")
	}
}

func TestScreenshotUnavailable(t *testing.T) {
	st := NewScreenshotTool(t.TempDir(), nil)

	result := st.Execute(context.Background(), map[string]any{})
	if result.Success {
		t.Fatalf("expected failure without capture support")
	}
}
