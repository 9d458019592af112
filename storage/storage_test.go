package storage

import (
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndGetDownloads(t *testing.T) {
	db := openTestDB(t)
	started := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	records := []*Download{
		{BatchID: "b1", URL: "https://youtu.be/abc123", Handler: "video", Destination: "/dl/Videos", StartedAt: started, DurationMs: 1200, Success: true},
		{BatchID: "b1", URL: "not a link", Handler: "", StartedAt: started.Add(time.Second), DurationMs: 0, Success: false, ErrorMessage: "no processor matches"},
	}
	for _, r := range records {
		if err := db.SaveDownload(r); err != nil {
			t.Fatalf("SaveDownload: %v", err)
		}
		if r.ID == 0 {
			t.Error("ID not set")
		}
	}

	got, err := db.GetDownloads(10, 0)
	if err != nil {
		t.Fatalf("GetDownloads: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d downloads, want 2", len(got))
	}
	if got[0].URL != "not a link" || got[0].ErrorMessage != "no processor matches" || got[0].Success {
		t.Errorf("newest = %+v", got[0])
	}
	if !got[1].StartedAt.Equal(started) || got[1].Destination != "/dl/Videos" || got[1].ErrorMessage != "" {
		t.Errorf("oldest = %+v", got[1])
	}

	page, err := db.GetDownloads(1, 1)
	if err != nil || len(page) != 1 || page[0].URL != "https://youtu.be/abc123" {
		t.Errorf("page = %+v, %v", page, err)
	}

	count, err := db.GetDownloadCount()
	if err != nil || count != 2 {
		t.Errorf("count = %d, %v", count, err)
	}

	batch, err := db.GetBatch("b1")
	if err != nil || len(batch) != 2 || batch[0].URL != "https://youtu.be/abc123" {
		t.Errorf("batch = %+v, %v", batch, err)
	}
}

func TestDeleteDownload(t *testing.T) {
	db := openTestDB(t)
	d := &Download{BatchID: "b", URL: "https://a.example", Handler: "video", StartedAt: time.Now(), Success: true}
	if err := db.SaveDownload(d); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteDownload(d.ID); err != nil {
		t.Fatalf("DeleteDownload: %v", err)
	}
	if err := db.DeleteDownload(d.ID); err == nil {
		t.Error("expected error deleting missing record")
	}
}

func TestHandlerAndOverallStats(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()

	for _, d := range []*Download{
		{BatchID: "b1", URL: "https://youtu.be/1", Handler: "video", StartedAt: now, DurationMs: 100, Success: true},
		{BatchID: "b1", URL: "https://youtu.be/2", Handler: "video", StartedAt: now, DurationMs: 300, Success: false, ErrorMessage: "yt-dlp failed"},
		{BatchID: "b2", URL: "https://pinterest.com/pin/1", Handler: "pinterest", StartedAt: now, DurationMs: 50, Success: true},
		{BatchID: "old", URL: "https://youtu.be/old", Handler: "video", StartedAt: now.AddDate(0, 0, -60), DurationMs: 10, Success: true},
	} {
		if err := db.SaveDownload(d); err != nil {
			t.Fatal(err)
		}
	}

	handlers, err := db.GetHandlerStats(30)
	if err != nil {
		t.Fatalf("GetHandlerStats: %v", err)
	}
	if len(handlers) != 2 {
		t.Fatalf("got %d handlers, want 2: %+v", len(handlers), handlers)
	}
	video := handlers[0]
	if video.Handler != "video" || video.Total != 2 || video.SuccessCount != 1 || video.FailureCount != 1 || video.AvgDurationMs != 200 {
		t.Errorf("video stats = %+v", video)
	}

	overall, err := db.GetOverallStats(30)
	if err != nil {
		t.Fatalf("GetOverallStats: %v", err)
	}
	if overall.Total != 3 || overall.Batches != 2 || overall.SuccessCount != 2 || overall.TotalDurationMs != 450 {
		t.Errorf("overall = %+v", overall)
	}

	daily, err := db.GetDailyStats(30)
	if err != nil {
		t.Fatalf("GetDailyStats: %v", err)
	}
	total := 0
	for _, d := range daily {
		total += d.Total
	}
	if total != 3 {
		t.Errorf("daily totals = %d, want 3", total)
	}
}

func TestOverallStatsEmpty(t *testing.T) {
	db := openTestDB(t)
	overall, err := db.GetOverallStats(7)
	if err != nil {
		t.Fatalf("GetOverallStats: %v", err)
	}
	if overall.Total != 0 || overall.SuccessCount != 0 {
		t.Errorf("overall = %+v", overall)
	}
}
