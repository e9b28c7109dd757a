package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/mediagen/compare"
	"github.com/BaSui01/mediagen/config"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(config.DatabaseConfig{Driver: "sqlite", Name: ":memory:"}, zaptest.NewLogger(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func summaryAt(ts string, entries ...compare.ResultEntry) *compare.Summary {
	return &compare.Summary{
		Timestamp:       ts,
		Prompt:          "A fairy dinosaur dancing in a jungle",
		Resolution:      "720p",
		DurationSeconds: 5,
		AspectRatio:     "16:9",
		Results:         entries,
	}
}

func success(model string, cost float64) compare.ResultEntry {
	return compare.ResultEntry{
		Model:                 model,
		Status:                compare.StatusSuccess,
		File:                  "video_compare/" + model + ".mp4",
		Filename:              model + ".mp4",
		DurationSeconds:       5,
		EstimatedCost:         cost,
		GenerationTimeSeconds: 12.5,
		ModelUsed:             model + " (standard)",
	}
}

func failed(model string, status compare.Status) compare.ResultEntry {
	return compare.ResultEntry{Model: model, Status: status, Error: "[CREDENTIAL] KEY not set"}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type statsRecorder struct {
	mu  sync.Mutex
	ops []string
}

func (r *statsRecorder) RecordDBConnections(string, int, int) {}

func (r *statsRecorder) RecordDBQuery(_, operation string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, operation)
}

func TestFromSummary(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.FixedZone("CET", 3600))
	s := summaryAt("20250314_092653", success("veo-3.1", 0.75), failed("p-video", compare.StatusSkipped))
	s.Results[0].PublicURL = "https://pub.example.dev/x.mp4"

	recs := FromSummary(s, at)
	require.Len(t, recs, 2)

	assert.Equal(t, "veo-3.1", recs[0].Model)
	assert.Equal(t, 0, recs[0].Position)
	assert.Equal(t, "success", recs[0].Status)
	assert.Equal(t, 0.75, recs[0].EstimatedCost)
	assert.Equal(t, 12.5, recs[0].GenerationSeconds)
	assert.Equal(t, "https://pub.example.dev/x.mp4", recs[0].PublicURL)
	assert.Equal(t, time.UTC, recs[0].CreatedAt.Location())
	assert.True(t, at.Equal(recs[0].CreatedAt))

	assert.Equal(t, 1, recs[1].Position)
	assert.Equal(t, "skipped", recs[1].Status)
	assert.NotEmpty(t, recs[1].Error)
	assert.Zero(t, recs[1].EstimatedCost)

	assert.Nil(t, FromSummary(nil, at))
}

func TestStore_RecordSummaryAndRecent(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	s := openTestStore(t, WithClock(c.now))
	ctx := context.Background()

	require.NoError(t, s.RecordSummary(ctx, summaryAt("20250314_090000",
		success("veo-3.1", 0.75), failed("p-video", compare.StatusSkipped))))

	c.t = c.t.Add(time.Hour)
	require.NoError(t, s.RecordSummary(ctx, summaryAt("20250314_100000",
		success("p-video-draft", 0.025), failed("veo-2", compare.StatusError))))

	recent, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 4)

	// 最新运行在前，运行内保持请求顺序
	assert.Equal(t, []string{"p-video-draft", "veo-2", "veo-3.1", "p-video"}, models(recent))
	for _, r := range recent {
		assert.Len(t, r.ID, 36)
	}

	limited, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-video-draft"}, models(limited))
}

func TestStore_SpendByModel(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	s := openTestStore(t, WithClock(c.now))
	ctx := context.Background()

	require.NoError(t, s.RecordSummary(ctx, summaryAt("20250301_000000",
		success("veo-3.1", 0.75), success("p-video-draft", 0.025))))

	c.t = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordSummary(ctx, summaryAt("20250310_000000",
		success("veo-3.1", 1.5), failed("veo-3.1", compare.StatusError), failed("p-video", compare.StatusSkipped))))

	all, err := s.SpendByModel(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	assert.Equal(t, "veo-3.1", all[0].Model)
	assert.Equal(t, int64(3), all[0].Runs)
	assert.Equal(t, int64(2), all[0].Successes)
	assert.InDelta(t, 2.25, all[0].TotalCost, 1e-9)

	assert.Equal(t, "p-video-draft", all[1].Model)
	assert.InDelta(t, 0.025, all[1].TotalCost, 1e-9)

	assert.Equal(t, "p-video", all[2].Model)
	assert.Zero(t, all[2].TotalCost)
	assert.Zero(t, all[2].Successes)

	since, err := s.SpendByModel(ctx, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	got := map[string]float64{}
	for _, m := range since {
		got[m.Model] = m.TotalCost
	}
	assert.Equal(t, map[string]float64{"veo-3.1": 1.5, "p-video": 0}, got)
}

func TestStore_EmptyRecordIsNoop(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, nil))
	require.NoError(t, s.RecordSummary(ctx, summaryAt("20250314_090000")))

	recent, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestStore_RecorderObservesQueries(t *testing.T) {
	rec := &statsRecorder{}
	s := openTestStore(t, WithRecorder(rec))
	ctx := context.Background()

	require.NoError(t, s.RecordSummary(ctx, summaryAt("20250314_090000", success("veo-3.1", 0.5))))
	_, err := s.SpendByModel(ctx, time.Time{})
	require.NoError(t, err)
	_, err = s.Recent(ctx, 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"insert", "spend_by_model", "recent"}, rec.ops)
}

func TestStore_ClosedStoreFails(t *testing.T) {
	s, err := Open(config.DatabaseConfig{Driver: "sqlite", Name: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Error(t, s.RecordSummary(context.Background(), summaryAt("x", success("m", 1))))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"}, nil)
	assert.Error(t, err)
}

func TestNew_NilPool(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

var _ compare.LedgerWriter = (*Store)(nil)

func models(recs []GenerationRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Model
	}
	return out
}
