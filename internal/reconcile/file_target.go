package reconcile

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"notionhelper/internal/todo"
	"notionhelper/internal/types"
)

// FileTarget is a local markdown file of checkbox items. Appends are
// written atomically; the content hash is checked before every write.
type FileTarget struct {
	Path string

	expected string
	ready    bool
}

// NewFileTarget returns a target for path. The file need not exist.
func NewFileTarget(path string) *FileTarget {
	return &FileTarget{Path: path}
}

func (f *FileTarget) Name() string { return f.Path }

func (f *FileTarget) read() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func hashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Snapshot parses the file as an outline. A missing file is empty.
func (f *FileTarget) Snapshot(ctx context.Context) ([]types.TodoItem, error) {
	data, err := f.read()
	if err != nil {
		return nil, fmt.Errorf("read target: %w", err)
	}
	items, _, err := todo.ParseOutline(bytes.NewReader(data), todo.LineSource{File: f.Path})
	if err != nil {
		return nil, err
	}
	f.expected = hashOf(data)
	f.ready = true
	return items, nil
}

// Append adds op.Item at the end of the file, or after the last line of
// the parent's subtree when op has a parent.
func (f *FileTarget) Append(ctx context.Context, op Op) error {
	if !f.ready {
		return fmt.Errorf("append to %s before snapshot", f.Path)
	}
	data, err := f.read()
	if err != nil {
		return fmt.Errorf("read target: %w", err)
	}
	if hashOf(data) != f.expected {
		return &types.WriteConflictError{Target: f.Path, Detail: "file content changed since it was read"}
	}

	var out []byte
	if op.Parent == nil {
		out = appendRoot(data, todo.RenderMarkdown([]types.TodoItem{op.Item}))
	} else {
		out, err = insertUnder(data, f.Path, op)
		if err != nil {
			return err
		}
	}

	if err := writeFileAtomic(f.Path, out); err != nil {
		return err
	}
	f.expected = hashOf(out)
	return nil
}

func appendRoot(data []byte, rendered string) []byte {
	out := make([]byte, 0, len(data)+len(rendered)+1)
	out = append(out, data...)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return append(out, rendered...)
}

// insertUnder locates the parent by its normalized path in the current
// content and inserts the rendered item after the parent's last descendant.
func insertUnder(data []byte, path string, op Op) ([]byte, error) {
	items, _, err := todo.ParseOutline(bytes.NewReader(data), todo.LineSource{File: path})
	if err != nil {
		return nil, err
	}
	parent, ok := findPath(items, op.ParentPath)
	if !ok {
		return nil, &types.WriteConflictError{Target: path, Detail: "parent item no longer present"}
	}
	last := parent.Source.Line
	parent.Walk(func(it types.TodoItem) bool {
		if it.Source.Line > last {
			last = it.Source.Line
		}
		return true
	})

	lines := strings.SplitAfter(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	parentLine := strings.TrimRight(lines[parent.Source.Line-1], "\r\n")
	indent := parentLine[:len(parentLine)-len(strings.TrimLeft(parentLine, " \t"))]
	if strings.HasPrefix(strings.TrimSpace(parentLine), "#") {
		indent = ""
	}
	if !strings.HasSuffix(lines[last-1], "\n") {
		lines[last-1] += "\n"
	}

	var sb strings.Builder
	for _, l := range lines[:last] {
		sb.WriteString(l)
	}
	sb.WriteString(todo.RenderMarkdownUnder([]types.TodoItem{op.Item}, indent))
	for _, l := range lines[last:] {
		sb.WriteString(l)
	}
	return []byte(sb.String()), nil
}

func findPath(items []types.TodoItem, path []string) (types.TodoItem, bool) {
	if len(path) == 0 {
		return types.TodoItem{}, false
	}
	for _, it := range items {
		if todo.Normalize(it.Text) != path[0] {
			continue
		}
		if len(path) == 1 {
			return it, true
		}
		if found, ok := findPath(it.Children, path[1:]); ok {
			return found, true
		}
	}
	return types.TodoItem{}, false
}

// writeFileAtomic writes through a temp file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
