// Package export 将排序后的选股结果写为 JSON 或 Parquet 文件。
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"maScan/internal/model"
)

// Record 导出的一行，字段顺序即排名顺序。
type Record struct {
	Rank       int     `json:"rank" parquet:"rank"`
	ScanDate   string  `json:"scan_date" parquet:"scan_date"`
	Code       string  `json:"code" parquet:"code"`
	Name       string  `json:"name" parquet:"name"`
	Sector     string  `json:"sector" parquet:"sector"`
	Market     string  `json:"market" parquet:"market"`
	PE         float64 `json:"pe" parquet:"pe"`
	LastPrice  float64 `json:"last" parquet:"last"`
	MA         float64 `json:"ma" parquet:"ma"`
	BiasPct    float64 `json:"bias_pct" parquet:"bias_pct"`
	WindowDays int     `json:"window_days" parquet:"window_days"`
}

// Records 结果行转导出行，Rank 从 1 开始。
func Records(rows []model.ResultRow, scanDate string) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = Record{
			Rank:       i + 1,
			ScanDate:   scanDate,
			Code:       r.Code,
			Name:       r.Name,
			Sector:     r.Sector,
			Market:     r.Market.String(),
			PE:         r.PE,
			LastPrice:  r.LastPrice,
			MA:         r.MA,
			BiasPct:    r.BiasPct,
			WindowDays: r.WindowDays,
		}
	}
	return out
}

type Writer interface {
	Extension() string
	Write(records []Record, path string) error
}

// NewWriter 按格式名（json / parquet）返回写出器。
func NewWriter(format string) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "":
		return JSONWriter{}, nil
	case "parquet":
		return ParquetWriter{}, nil
	default:
		return nil, fmt.Errorf("export: unsupported format %q (json, parquet)", format)
	}
}

type JSONWriter struct{}

func (JSONWriter) Extension() string { return "json" }

func (JSONWriter) Write(records []Record, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if records == nil {
		records = []Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

// writeFileAtomic 先写同目录临时文件再 rename，失败时不留半截文件。
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

type ParquetWriter struct{}

func (ParquetWriter) Extension() string { return "parquet" }

func (ParquetWriter) Write(records []Record, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Save 写出到 path；path 没有扩展名时按格式补上。返回实际路径。
func Save(rows []model.ResultRow, scanDate, format, path string) (string, error) {
	w, err := NewWriter(format)
	if err != nil {
		return "", err
	}
	if filepath.Ext(path) == "" {
		path += "." + w.Extension()
	}
	if err := w.Write(Records(rows, scanDate), path); err != nil {
		return "", fmt.Errorf("export %s: %w", path, err)
	}
	return path, nil
}
