package backends

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"taskfed/internal/logging"
)

func testFileBackend(t *testing.T, compress bool) (*FileBackend, string) {
	t.Helper()
	dir := t.TempDir()
	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel})
	b := NewFileBackend(dir, compress, logger)
	if err := b.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return b, dir
}

func TestFileBackendRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		ctx := context.Background()
		b, _ := testFileBackend(t, compress)

		stored := sampleList("l1", "groceries", "home")
		if err := b.Save(ctx, stored.ID, stored); err != nil {
			t.Fatalf("compress=%t: Save failed: %v", compress, err)
		}

		loaded, err := b.Load(ctx, "l1")
		if err != nil {
			t.Fatalf("compress=%t: Load failed: %v", compress, err)
		}
		if loaded == nil || loaded.Title != "groceries" {
			t.Fatalf("compress=%t: unexpected load result: %+v", compress, loaded)
		}

		absent, err := b.Load(ctx, "missing")
		if err != nil || absent != nil {
			t.Errorf("compress=%t: absent key should load (nil, nil), got (%+v, %v)", compress, absent, err)
		}
	}
}

func TestFileBackendCompressedDocumentsOnDisk(t *testing.T) {
	ctx := context.Background()
	b, dir := testFileBackend(t, true)

	_ = b.Save(ctx, "l1", sampleList("l1", "groceries", ""))

	if _, err := os.Stat(filepath.Join(dir, "l1.json.gz")); err != nil {
		t.Errorf("expected a gzip document on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "l1.json")); !os.IsNotExist(err) {
		t.Error("plain document should not exist in compressed mode")
	}
}

func TestFileBackendReadsBothFormats(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	// written plain, read back by a compressed-mode backend
	plain := NewFileBackend(dir, false, nil)
	if err := plain.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	_ = plain.Save(ctx, "l1", sampleList("l1", "groceries", ""))

	compressed := NewFileBackend(dir, true, nil)
	loaded, err := compressed.Load(ctx, "l1")
	if err != nil || loaded == nil {
		t.Fatalf("flipping compression must not lose data: (%+v, %v)", loaded, err)
	}
}

func TestFileBackendCompressFlipLeavesSingleDocument(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	plain := NewFileBackend(dir, false, nil)
	if err := plain.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	_ = plain.Save(ctx, "l1", sampleList("l1", "first", ""))

	compressed := NewFileBackend(dir, true, nil)
	if err := compressed.Save(ctx, "l1", sampleList("l1", "second", "")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// the plain sibling must be gone, not left to shadow the new copy
	if _, err := os.Stat(filepath.Join(dir, "l1.json")); !os.IsNotExist(err) {
		t.Error("save after a compression flip left the stale plain document")
	}
	loaded, err := compressed.Load(ctx, "l1")
	if err != nil || loaded == nil || loaded.Title != "second" {
		t.Errorf("expected the rewritten copy, got (%+v, %v)", loaded, err)
	}
}

func TestFileBackendDeleteAfterCompressFlip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	plain := NewFileBackend(dir, false, nil)
	if err := plain.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	compressed := NewFileBackend(dir, true, nil)

	// force both format variants onto disk: write the gzip copy first,
	// then the plain copy (whose cleanup only targets the .json.gz path
	// it just superseded)
	_ = compressed.Save(ctx, "l1", sampleList("l1", "gzip copy", ""))
	if err := os.Rename(filepath.Join(dir, "l1.json.gz"), filepath.Join(dir, "keep.gz")); err != nil {
		t.Fatal(err)
	}
	_ = plain.Save(ctx, "l1", sampleList("l1", "plain copy", ""))
	if err := os.Rename(filepath.Join(dir, "keep.gz"), filepath.Join(dir, "l1.json.gz")); err != nil {
		t.Fatal(err)
	}

	if err := plain.Delete(ctx, "l1", false); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	loaded, err := plain.Load(ctx, "l1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != nil {
		t.Errorf("delete must remove every format variant, resurrected %q", loaded.Title)
	}
	for _, name := range []string{"l1.json", "l1.json.gz"} {
		if _, err := os.Stat(filepath.Join(dir, trashSubdir, name)); err != nil {
			t.Errorf("expected %s in trash: %v", name, err)
		}
	}

	// permanent delete also clears both variants
	_ = compressed.Save(ctx, "l2", sampleList("l2", "gzip copy", ""))
	if err := os.Rename(filepath.Join(dir, "l2.json.gz"), filepath.Join(dir, "keep.gz")); err != nil {
		t.Fatal(err)
	}
	_ = plain.Save(ctx, "l2", sampleList("l2", "plain copy", ""))
	if err := os.Rename(filepath.Join(dir, "keep.gz"), filepath.Join(dir, "l2.json.gz")); err != nil {
		t.Fatal(err)
	}
	if err := plain.Delete(ctx, "l2", true); err != nil {
		t.Fatalf("permanent Delete failed: %v", err)
	}
	if loaded, _ := plain.Load(ctx, "l2"); loaded != nil {
		t.Errorf("permanent delete must remove every format variant, resurrected %q", loaded.Title)
	}
}

func TestFileBackendTrash(t *testing.T) {
	ctx := context.Background()
	b, dir := testFileBackend(t, false)

	_ = b.Save(ctx, "l1", sampleList("l1", "groceries", ""))

	if err := b.Delete(ctx, "l1", false); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	loaded, _ := b.Load(ctx, "l1")
	if loaded != nil {
		t.Error("trashed document should read as absent")
	}
	if _, err := os.Stat(filepath.Join(dir, trashSubdir, "l1.json")); err != nil {
		t.Errorf("trashed document should survive in %s: %v", trashSubdir, err)
	}

	_ = b.Save(ctx, "l2", sampleList("l2", "release", ""))
	if err := b.Delete(ctx, "l2", true); err != nil {
		t.Fatalf("permanent Delete failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, trashSubdir, "l2.json")); !os.IsNotExist(err) {
		t.Error("permanent delete must not leave a trash copy")
	}

	if err := b.Delete(ctx, "never-existed", false); err != nil {
		t.Errorf("deleting an absent key must not error: %v", err)
	}
}

func TestFileBackendListSkipsGarbage(t *testing.T) {
	ctx := context.Background()
	b, dir := testFileBackend(t, false)

	_ = b.Save(ctx, "l1", sampleList("l1", "groceries", "home"))
	_ = b.Save(ctx, "l2", sampleList("l2", "release", "work"))
	if err := os.WriteFile(filepath.Join(dir, "corrupt.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatal(err)
	}

	summaries, err := b.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Errorf("expected 2 summaries despite garbage files, got %d", len(summaries))
	}

	summaries, _ = b.List(ctx, ListOptions{ProjectTag: "work"})
	if len(summaries) != 1 || summaries[0].ID != "l2" {
		t.Errorf("project-filtered listing, got %v", summaries)
	}
}

func TestFileBackendHealthCheck(t *testing.T) {
	ctx := context.Background()
	b, dir := testFileBackend(t, false)

	if err := b.HealthCheck(ctx); err != nil {
		t.Errorf("healthy backend reported: %v", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := b.HealthCheck(ctx); err == nil {
		t.Error("missing data directory should fail the health check")
	}
}
