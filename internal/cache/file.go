package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"maScan/internal/model"
)

// FileStore 单个 JSON 文件：{"date":"2024-05-01","items":{"1.600000":{"d":[...],"c":[...]}}}。
// 写入先落临时文件再 rename，中途失败不会留下半个文件。
type FileStore struct {
	Path string
}

type fileDoc struct {
	Date  string               `json:"date"`
	Items map[string]fileEntry `json:"items"`
}

type fileEntry struct {
	D []string  `json:"d"`
	C []float64 `json:"c"`
}

func NewFileStore(path string) *FileStore { return &FileStore{Path: path} }

func (f *FileStore) Load(_ context.Context) (Snapshot, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, &IOError{Op: "read", Path: f.Path, Err: err}
	}
	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, &IOError{Op: "decode", Path: f.Path, Err: err}
	}
	snap := Snapshot{Date: doc.Date, Items: make(map[string]model.BarSeries, len(doc.Items))}
	for id, e := range doc.Items {
		snap.Items[id] = model.BarSeries{Dates: e.D, Closes: e.C}
	}
	return snap, nil
}

func (f *FileStore) Save(_ context.Context, s Snapshot) error {
	doc := fileDoc{Date: s.Date, Items: make(map[string]fileEntry, len(s.Items))}
	for id, bs := range s.Items {
		doc.Items[id] = fileEntry{D: bs.Dates, C: bs.Closes}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return &IOError{Op: "encode", Path: f.Path, Err: err}
	}
	if err := writeFileAtomic(f.Path, data); err != nil {
		return &IOError{Op: "write", Path: f.Path, Err: err}
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
