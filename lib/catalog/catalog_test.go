// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/anveksha/lib/clock"
	"github.com/bureau-foundation/anveksha/lib/layout"
)

var epoch = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func openStore(t *testing.T) (*Store, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	store, err := Open(context.Background(), Config{
		Path:  filepath.Join(t.TempDir(), "catalog.db"),
		Clock: fake,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, fake
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestRecordAndList(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	directory := t.TempDir()

	older := filepath.Join(directory, "screenshot-a.png")
	newer := filepath.Join(directory, "screenshot-b.png")
	video := filepath.Join(directory, "Recording_x.avi")
	writeFile(t, older, "png-bytes")
	writeFile(t, newer, "png")
	writeFile(t, video, "avi")

	for _, artifact := range []Artifact{
		{Kind: KindScreenshot, Path: older, CreatedAt: epoch},
		{Kind: KindScreenshot, Path: newer, CreatedAt: epoch.Add(time.Minute)},
		{Kind: KindVideo, Path: video, CreatedAt: epoch.Add(30 * time.Second)},
	} {
		if _, err := store.RecordArtifact(ctx, artifact); err != nil {
			t.Fatalf("RecordArtifact(%s): %v", artifact.Path, err)
		}
	}

	screenshots, err := store.ListArtifacts(ctx, KindScreenshot)
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(screenshots) != 2 {
		t.Fatalf("got %d screenshots, want 2", len(screenshots))
	}
	if screenshots[0].Path != newer {
		t.Errorf("first screenshot = %s, want newest %s", screenshots[0].Path, newer)
	}
	if screenshots[1].Size != int64(len("png-bytes")) {
		t.Errorf("Size = %d, want size filled from file", screenshots[1].Size)
	}
	if !screenshots[1].CreatedAt.Equal(epoch) {
		t.Errorf("CreatedAt = %v, want %v", screenshots[1].CreatedAt, epoch)
	}

	all, err := store.ListArtifacts(ctx, "")
	if err != nil {
		t.Fatalf("ListArtifacts(all): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d artifacts, want 3", len(all))
	}
}

func TestRecordIsIdempotentOnPath(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "log.txt")
	writeFile(t, path, "a")

	first, err := store.RecordArtifact(ctx, Artifact{Kind: KindKeyLog, Path: path})
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, "abc")
	second, err := store.RecordArtifact(ctx, Artifact{Kind: KindKeyLog, Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("second record got id %d, want %d", second, first)
	}
	artifact, err := store.Artifact(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if artifact.Size != 3 {
		t.Errorf("Size = %d, want refreshed size 3", artifact.Size)
	}
}

func TestRecordRejectsBadInput(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	if _, err := store.RecordArtifact(ctx, Artifact{Kind: KindVideo}); err == nil {
		t.Error("empty path accepted")
	}
	if _, err := store.RecordArtifact(ctx, Artifact{Kind: "bogus", Path: "/tmp/x"}); err == nil {
		t.Error("unknown kind accepted")
	}
}

func TestDeleteArtifact(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "screenshot-1.png")
	writeFile(t, path, "x")

	id, err := store.RecordArtifact(ctx, Artifact{Kind: KindScreenshot, Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteArtifact(ctx, id); err != nil {
		t.Fatalf("DeleteArtifact: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists after delete (stat err %v)", err)
	}
	if err := store.DeleteArtifact(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}

	// A row whose file is already gone still deletes cleanly.
	missing := filepath.Join(t.TempDir(), "gone.png")
	id, err = store.RecordArtifact(ctx, Artifact{Kind: KindScreenshot, Path: missing})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteArtifact(ctx, id); err != nil {
		t.Errorf("delete with missing file: %v", err)
	}
}

func TestIndexExisting(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	root := layout.New(t.TempDir())
	if err := root.Ensure(); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(root.Screenshots, "screenshot-2026-01-02_03-04-05.png"), "p")
	writeFile(t, filepath.Join(root.Screenshots, "notes.md"), "ignored")
	writeFile(t, filepath.Join(root.Videos, "Recording_2026-01-02_03-00-00.avi"), "v")
	writeFile(t, filepath.Join(root.Logs, "log.txt"), "keys")
	writeFile(t, filepath.Join(root.Logs, "ProcessLog.txt"), "activity")
	writeFile(t, filepath.Join(root.Logs, "ocr_log_2026-01-02_03-04-05.txt"), "text")

	count, err := store.IndexExisting(ctx, root)
	if err != nil {
		t.Fatalf("IndexExisting: %v", err)
	}
	if count != 5 {
		t.Fatalf("indexed %d files, want 5", count)
	}

	again, err := store.IndexExisting(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if again != 0 {
		t.Errorf("second index found %d new files, want 0", again)
	}

	want := map[Kind]int{KindScreenshot: 1, KindVideo: 1, KindKeyLog: 1, KindActivityLog: 1, KindOCRText: 1}
	for kind, n := range want {
		artifacts, err := store.ListArtifacts(ctx, kind)
		if err != nil {
			t.Fatal(err)
		}
		if len(artifacts) != n {
			t.Errorf("%s: %d artifacts, want %d", kind, len(artifacts), n)
		}
	}

	screenshots, _ := store.ListArtifacts(ctx, KindScreenshot)
	wantTime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	if !screenshots[0].CreatedAt.Equal(wantTime) {
		t.Errorf("CreatedAt = %v, want filename timestamp %v", screenshots[0].CreatedAt, wantTime)
	}
}

func TestPurgeAllAndDeleteFiles(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	directory := t.TempDir()

	var paths []string
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		path := filepath.Join(directory, name)
		writeFile(t, path, name)
		paths = append(paths, path)
		if _, err := store.RecordArtifact(ctx, Artifact{Kind: KindScreenshot, Path: path}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.RecordTemplateSet(ctx, "/data/face.cbor", 10, epoch); err != nil {
		t.Fatal(err)
	}

	deleted, err := store.DeleteFiles(ctx)
	if err != nil {
		t.Fatalf("DeleteFiles: %v", err)
	}
	if deleted != 3 {
		t.Errorf("DeleteFiles removed %d, want 3", deleted)
	}
	artifacts, err := store.ListArtifacts(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 3 {
		t.Fatalf("records after DeleteFiles = %d, want 3", len(artifacts))
	}
	for _, artifact := range artifacts {
		if !artifact.FileDeleted {
			t.Errorf("%s not marked FileDeleted", artifact.Path)
		}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s still on disk", path)
		}
	}

	purged, err := store.PurgeAll(ctx)
	if err != nil {
		t.Fatalf("PurgeAll: %v", err)
	}
	if purged != 3 {
		t.Errorf("PurgeAll removed %d rows, want 3", purged)
	}
	artifacts, _ = store.ListArtifacts(ctx, "")
	if len(artifacts) != 0 {
		t.Errorf("%d artifacts survive purge", len(artifacts))
	}
	if _, ok, err := store.LatestTemplateSet(ctx); err != nil || !ok {
		t.Errorf("template registry lost on purge (ok=%v, err=%v)", ok, err)
	}
}

func TestExtractedText(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	directory := t.TempDir()
	output := filepath.Join(directory, "ocr_log_x.txt")
	writeFile(t, output, "ignored")

	id, err := store.RecordArtifact(ctx, Artifact{Kind: KindOCRText, Path: output})
	if err != nil {
		t.Fatal(err)
	}
	text := strings.Repeat("Quarterly report draft\n", 200)
	if err := store.RecordExtractedText(ctx, id, "/shots/a.png", "digest-a", text); err != nil {
		t.Fatalf("RecordExtractedText: %v", err)
	}

	got, err := store.ExtractedText(ctx, id)
	if err != nil {
		t.Fatalf("ExtractedText: %v", err)
	}
	if got != text {
		t.Errorf("ExtractedText returned %d bytes, want %d", len(got), len(text))
	}

	sources, err := store.ProcessedSources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sources["/shots/a.png"] != "digest-a" {
		t.Errorf("ProcessedSources = %v", sources)
	}

	// Deleting the OCR artifact releases its source.
	if err := store.DeleteArtifact(ctx, id); err != nil {
		t.Fatal(err)
	}
	sources, err = store.ProcessedSources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 0 {
		t.Errorf("ProcessedSources after delete = %v, want empty", sources)
	}
	if _, err := store.ExtractedText(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("ExtractedText after delete err = %v, want ErrNotFound", err)
	}
}

func TestLatestTemplateSet(t *testing.T) {
	store, fake := openStore(t)
	ctx := context.Background()

	if _, ok, err := store.LatestTemplateSet(ctx); err != nil || ok {
		t.Fatalf("empty registry: ok=%v err=%v", ok, err)
	}
	if _, err := store.RecordTemplateSet(ctx, "/a", 4, epoch); err != nil {
		t.Fatal(err)
	}
	fake.Advance(time.Hour)
	if _, err := store.RecordTemplateSet(ctx, "/b", 9, epoch.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	record, ok, err := store.LatestTemplateSet(ctx)
	if err != nil || !ok {
		t.Fatalf("LatestTemplateSet: ok=%v err=%v", ok, err)
	}
	if record.Path != "/b" || record.Count != 9 {
		t.Errorf("latest = %+v, want /b with 9 templates", record)
	}
}

func TestParseKind(t *testing.T) {
	if kind, err := ParseKind("video"); err != nil || kind != KindVideo {
		t.Errorf("ParseKind(video) = %q, %v", kind, err)
	}
	if kind, err := ParseKind(""); err != nil || kind != "" {
		t.Errorf("ParseKind(\"\") = %q, %v", kind, err)
	}
	if _, err := ParseKind("movies"); err == nil {
		t.Error("ParseKind accepted an unknown kind")
	}
}
