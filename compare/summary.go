package compare

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TimestampLayout 是运行 ID 的格式，按字典序即按时间排序
const TimestampLayout = "20060102_150405"

// Status 是单个模型在一次对比运行中的结果状态
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// ResultEntry 是 summary 中的一条记录。数值字段仅在 success 时写出，
// Error 仅在 error/skipped 时写出。
type ResultEntry struct {
	Model                 string
	Status                Status
	File                  string
	Filename              string
	DurationSeconds       float64
	EstimatedCost         float64
	GenerationTimeSeconds float64
	ModelUsed             string
	Metadata              map[string]any
	PublicURL             string
	Error                 string
}

type resultEntryJSON struct {
	Model                 string          `json:"model"`
	Status                Status          `json:"status"`
	File                  string          `json:"file,omitempty"`
	Filename              string          `json:"filename,omitempty"`
	DurationSeconds       *float64        `json:"duration_seconds,omitempty"`
	EstimatedCost         *float64        `json:"estimated_cost,omitempty"`
	GenerationTimeSeconds *float64        `json:"generation_time_seconds,omitempty"`
	ModelUsed             string          `json:"model_used,omitempty"`
	Metadata              *map[string]any `json:"metadata,omitempty"`
	PublicURL             string          `json:"public_url,omitempty"`
	Error                 string          `json:"error,omitempty"`
}

// MarshalJSON 按状态写出字段
func (e ResultEntry) MarshalJSON() ([]byte, error) {
	w := resultEntryJSON{Model: e.Model, Status: e.Status}
	if e.Status == StatusSuccess {
		w.File = e.File
		w.Filename = e.Filename
		w.DurationSeconds = &e.DurationSeconds
		w.EstimatedCost = &e.EstimatedCost
		w.GenerationTimeSeconds = &e.GenerationTimeSeconds
		w.ModelUsed = e.ModelUsed
		// success 时 metadata 必须是对象，空 map 也要写出
		md := e.Metadata
		if md == nil {
			md = map[string]any{}
		}
		w.Metadata = &md
		w.PublicURL = e.PublicURL
	} else {
		w.Error = e.Error
	}
	return json.Marshal(w)
}

// UnmarshalJSON 实现 json.Unmarshaler
func (e *ResultEntry) UnmarshalJSON(data []byte) error {
	var w resultEntryJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = ResultEntry{
		Model:     w.Model,
		Status:    w.Status,
		File:      w.File,
		Filename:  w.Filename,
		ModelUsed: w.ModelUsed,
		PublicURL: w.PublicURL,
		Error:     w.Error,
	}
	if w.DurationSeconds != nil {
		e.DurationSeconds = *w.DurationSeconds
	}
	if w.EstimatedCost != nil {
		e.EstimatedCost = *w.EstimatedCost
	}
	if w.GenerationTimeSeconds != nil {
		e.GenerationTimeSeconds = *w.GenerationTimeSeconds
	}
	if w.Metadata != nil {
		e.Metadata = *w.Metadata
	}
	if e.Status == StatusSuccess && e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	return nil
}

// Summary 是一次对比运行的完整记录，对应 comparison_<timestamp>.json
type Summary struct {
	Timestamp          string
	Prompt             string
	ImagePath          string
	Resolution         string
	DurationSeconds    int
	AspectRatio        string
	TotalEstimatedCost float64
	Results            []ResultEntry
}

type summaryJSON struct {
	Timestamp          string        `json:"timestamp"`
	Prompt             string        `json:"prompt"`
	ImagePath          *string       `json:"image_path"`
	Resolution         string        `json:"resolution"`
	DurationSeconds    int           `json:"duration_seconds"`
	AspectRatio        string        `json:"aspect_ratio"`
	TotalEstimatedCost float64       `json:"total_estimated_cost"`
	Results            []ResultEntry `json:"results"`
}

// MarshalJSON 写出 summary；ImagePath 为空时 image_path 为 null
func (s Summary) MarshalJSON() ([]byte, error) {
	w := summaryJSON{
		Timestamp:          s.Timestamp,
		Prompt:             s.Prompt,
		Resolution:         s.Resolution,
		DurationSeconds:    s.DurationSeconds,
		AspectRatio:        s.AspectRatio,
		TotalEstimatedCost: s.TotalEstimatedCost,
		Results:            s.Results,
	}
	if s.ImagePath != "" {
		w.ImagePath = &s.ImagePath
	}
	if w.Results == nil {
		w.Results = []ResultEntry{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON 实现 json.Unmarshaler
func (s *Summary) UnmarshalJSON(data []byte) error {
	var w summaryJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Summary{
		Timestamp:          w.Timestamp,
		Prompt:             w.Prompt,
		Resolution:         w.Resolution,
		DurationSeconds:    w.DurationSeconds,
		AspectRatio:        w.AspectRatio,
		TotalEstimatedCost: w.TotalEstimatedCost,
		Results:            w.Results,
	}
	if w.ImagePath != nil {
		s.ImagePath = *w.ImagePath
	}
	return nil
}

// Models 按请求顺序返回每条记录的模型名
func (s *Summary) Models() []string {
	out := make([]string, len(s.Results))
	for i, r := range s.Results {
		out[i] = r.Model
	}
	return out
}

// Count 返回指定状态的记录数
func (s *Summary) Count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// SuccessCost 重新汇总 success 记录的估算花费
func (s *Summary) SuccessCost() float64 {
	total := 0.0
	for _, r := range s.Results {
		if r.Status == StatusSuccess {
			total += r.EstimatedCost
		}
	}
	return roundCost(total)
}

// SafeModelName 将模型名转换为文件名片段（"." 与空格替换为 "_"）
func SafeModelName(model string) string {
	return strings.NewReplacer(".", "_", " ", "_").Replace(model)
}

// SummaryFileName 返回本地 summary 文件名
func SummaryFileName(timestamp string) string {
	return "comparison_" + timestamp + ".json"
}

func roundCost(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// =============================================================================
// 📄 读写
// =============================================================================

// WriteSummary 以缩进 JSON 原子写入 summary（同目录临时文件 + rename）
func WriteSummary(path string, s *Summary) error {
	if s == nil {
		return errors.New("nil summary")
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// ReadSummary 读取 WriteSummary 写出的文件
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode summary %s: %w", path, err)
	}
	return &s, nil
}
