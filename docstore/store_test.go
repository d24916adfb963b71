package docstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "files"), filepath.Join(dir, "catalog.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreIdempotent(t *testing.T) {
	s := newStore(t)
	raw := []byte("%PDF-1.4 fake content")

	first, err := s.Store(raw, "report.pdf", "alice")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Store(raw, "report.pdf", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if first.Path != second.Path || first.Digest != second.Digest {
		t.Fatalf("re-store changed identity: %+v vs %+v", first, second)
	}

	entries, err := os.ReadDir(filepath.Dir(first.Path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a single stored file, found %d", len(entries))
	}
}

func TestStoreDedupIgnoresName(t *testing.T) {
	s := newStore(t)
	raw := []byte("identical bytes")

	first, err := s.Store(raw, "one.pdf", "alice")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Store(raw, "completely-different.pdf", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if second.Path != first.Path {
		t.Fatalf("same bytes under a new name must dedup to %q, got %q", first.Path, second.Path)
	}
	if second.Name != first.Name {
		t.Errorf("dedup hit must return the original record, got name %q", second.Name)
	}
}

func TestStorePerUserIsolation(t *testing.T) {
	s := newStore(t)
	raw := []byte("shared bytes")

	a, err := s.Store(raw, "doc.pdf", "alice")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Store(raw, "doc.pdf", "bob")
	if err != nil {
		t.Fatal(err)
	}
	if a.Path == b.Path {
		t.Fatal("different users must not share storage paths")
	}
	if a.Digest != b.Digest {
		t.Error("identical bytes must share a digest across users")
	}
}

func TestStoreSanitizesPathSegments(t *testing.T) {
	s := newStore(t)
	sf, err := s.Store([]byte("x"), "we ird/na?me.pdf", "alice-01")
	if err != nil {
		t.Fatal(err)
	}
	base := filepath.Base(sf.Path)
	if strings.ContainsAny(base, " ?") {
		t.Errorf("unsanitized characters in stored name: %q", base)
	}
	if sf.Name != "na?me.pdf" {
		t.Errorf("catalog must keep the original base name, got %q", sf.Name)
	}
}

func TestStoreRejectsBadUserID(t *testing.T) {
	s := newStore(t)
	for _, uid := range []string{"", "../escape", "a/b", strings.Repeat("x", 300)} {
		if _, err := s.Store([]byte("x"), "f.pdf", uid); err == nil {
			t.Errorf("user id %q accepted", uid)
		}
	}
}

func TestGetAndList(t *testing.T) {
	s := newStore(t)
	sf, err := s.Store([]byte("payload one"), "a.pdf", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Store([]byte("payload two"), "b.docx", "alice"); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get("alice", sf.Digest)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Path != sf.Path {
		t.Fatalf("Get returned %+v, want %+v", got, sf)
	}

	if missing, err := s.Get("alice", strings.Repeat("0", 64)); err != nil || missing != nil {
		t.Fatalf("absent digest: got %+v, %v", missing, err)
	}

	files, err := s.List("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("List = %d files, want 2", len(files))
	}
	if files, _ := s.List("bob"); len(files) != 0 {
		t.Fatal("List must be scoped per user")
	}
}

func TestDeleteRemovesFileArtifactAndRow(t *testing.T) {
	s := newStore(t)
	sf, err := s.Store([]byte("image bytes"), "scan.png", "alice")
	if err != nil {
		t.Fatal(err)
	}
	artifact := s.ArtifactPath(sf)
	if err := os.WriteFile(artifact, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete("alice", sf.Digest); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(sf.Path); !os.IsNotExist(err) {
		t.Error("original not removed")
	}
	if _, err := os.Stat(artifact); !os.IsNotExist(err) {
		t.Error("artifact not removed")
	}
	if got, _ := s.Get("alice", sf.Digest); got != nil {
		t.Error("catalog row not removed")
	}

	// Absent identity is a no-op.
	if err := s.Delete("alice", sf.Digest); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestArtifactPathForPDF(t *testing.T) {
	s := newStore(t)
	sf, err := s.Store([]byte("%PDF-1.4"), "doc.pdf", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.ArtifactPath(sf); got != sf.Path {
		t.Errorf("PDF artifact path = %q, want the original %q", got, sf.Path)
	}
	if !s.HasArtifact(sf) {
		t.Error("stored PDF should already have its artifact")
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain.pdf", "plain.pdf"},
		{"a b/c", "a_b_c"},
		{"päper", "p_per"},
		{"..", ".."}, // dots are legal name chars; traversal is caught at join time
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSafeJoin(t *testing.T) {
	if _, err := safeJoin("/data", "../etc"); err == nil {
		t.Error("traversal segment accepted")
	}
	p, err := safeJoin("/data", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if p != filepath.Join("/data", "alice") {
		t.Errorf("safeJoin = %q", p)
	}
}
