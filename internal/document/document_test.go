package document

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ragbench/ragbench/internal/chunk"
	"github.com/ragbench/ragbench/internal/errdefs"
)

func TestCreateReadyDocument(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, 0, nil)
	doc, err := r.Create("notes.txt", []byte("Hello world from Go"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if doc.ID == "" {
		t.Fatal("Create() returned empty ID")
	}
	if doc.Status != StatusReady {
		t.Errorf("Status = %q, want %q", doc.Status, StatusReady)
	}
	if doc.FileType != "txt" {
		t.Errorf("FileType = %q, want %q", doc.FileType, "txt")
	}
	if doc.FileSize != 19 {
		t.Errorf("FileSize = %d, want 19", doc.FileSize)
	}
	want := Stats{CharCount: 19, WordCount: 4, EstimatedTokens: 4}
	if diff := cmp.Diff(want, doc.Stats); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}

	got, err := r.Get(doc.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Filename != "notes.txt" {
		t.Errorf("Get().Filename = %q, want %q", got.Filename, "notes.txt")
	}

	text, err := r.Text(doc.ID)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if text != "Hello world from Go" {
		t.Errorf("Text() = %q, want original content", text)
	}
}

func TestCreateRejectsUpload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		content  []byte
		maxBytes int64
	}{
		{
			name:     "unsupported extension",
			filename: "report.pdf",
			content:  []byte("binary"),
		},
		{
			name:     "no extension",
			filename: "README",
			content:  []byte("text"),
		},
		{
			name:     "blank filename",
			filename: "   ",
			content:  []byte("text"),
		},
		{
			name:     "over size limit",
			filename: "big.txt",
			content:  []byte(strings.Repeat("a", 11)),
			maxBytes: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewRegistry(nil, tt.maxBytes, nil)
			if _, err := r.Create(tt.filename, tt.content); !errdefs.IsValidation(err) {
				t.Fatalf("Create() error = %v, want validation error", err)
			}
			if docs := r.List(); len(docs) != 0 {
				t.Errorf("List() after rejected upload = %d documents, want 0", len(docs))
			}
		})
	}
}

func TestCreateLatin1Fallback(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, 0, nil)
	doc, err := r.Create("menu.txt", []byte{'c', 'a', 'f', 0xE9})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	text, err := r.Text(doc.ID)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if text != "café" {
		t.Errorf("Text() = %q, want %q", text, "café")
	}
	if doc.Stats.CharCount != 4 {
		t.Errorf("CharCount = %d, want 4", doc.Stats.CharCount)
	}
	if doc.FileSize != 4 {
		t.Errorf("FileSize = %d, want 4", doc.FileSize)
	}
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, 0, nil)
	first, err := r.Create("first.txt", []byte("one"))
	if err != nil {
		t.Fatalf("Create(first) error = %v", err)
	}
	second, err := r.Create("second.txt", []byte("two"))
	if err != nil {
		t.Fatalf("Create(second) error = %v", err)
	}

	docs := r.List()
	if len(docs) != 2 {
		t.Fatalf("List() = %d documents, want 2", len(docs))
	}
	if docs[0].ID != second.ID || docs[1].ID != first.ID {
		t.Errorf("List() order = [%s %s], want newest first [%s %s]",
			docs[0].Filename, docs[1].Filename, second.Filename, first.Filename)
	}
}

func TestDeleteCascadesChunks(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, 0, nil)
	doc, err := r.Create("doc.txt", []byte("some text to chunk"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	set := &chunk.Set{
		DocumentID: doc.ID,
		Strategy:   chunk.StrategyFixed,
		Chunks:     []chunk.Chunk{{ID: "c1", DocumentID: doc.ID, Text: "some text"}},
	}
	if err := r.SetChunks(doc.ID, set); err != nil {
		t.Fatalf("SetChunks() error = %v", err)
	}

	if err := r.Delete(doc.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := r.Get(doc.ID); !errdefs.IsNotFound(err) {
		t.Errorf("Get() after delete error = %v, want not found", err)
	}
	if _, err := r.Chunks(doc.ID); !errdefs.IsNotFound(err) {
		t.Errorf("Chunks() after delete error = %v, want not found", err)
	}
	if err := r.Delete(doc.ID); !errdefs.IsNotFound(err) {
		t.Errorf("second Delete() error = %v, want not found", err)
	}
}

func TestChunkRunSupersedes(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, 0, nil)
	doc, err := r.Create("doc.md", []byte("alpha beta gamma"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first := &chunk.Set{DocumentID: doc.ID, Strategy: chunk.StrategyFixed,
		Chunks: []chunk.Chunk{{ID: "f1"}, {ID: "f2"}}}
	second := &chunk.Set{DocumentID: doc.ID, Strategy: chunk.StrategySentence,
		Chunks: []chunk.Chunk{{ID: "s1"}}}

	if err := r.SetChunks(doc.ID, first); err != nil {
		t.Fatalf("SetChunks(first) error = %v", err)
	}
	if err := r.SetChunks(doc.ID, second); err != nil {
		t.Fatalf("SetChunks(second) error = %v", err)
	}

	got, err := r.Chunks(doc.ID)
	if err != nil {
		t.Fatalf("Chunks() error = %v", err)
	}
	if got.Strategy != chunk.StrategySentence {
		t.Errorf("Strategy = %q, want %q", got.Strategy, chunk.StrategySentence)
	}
	if len(got.Chunks) != 1 || got.Chunks[0].ID != "s1" {
		t.Errorf("Chunks = %+v, want the superseding run", got.Chunks)
	}
}

func TestChunksBeforeAnyRun(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, 0, nil)
	doc, err := r.Create("doc.txt", []byte("text"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := r.Chunks(doc.ID); !errdefs.IsNotFound(err) {
		t.Errorf("Chunks() error = %v, want not found", err)
	}
	if err := r.SetChunks("missing", &chunk.Set{}); !errdefs.IsNotFound(err) {
		t.Errorf("SetChunks(missing) error = %v, want not found", err)
	}
}

func TestTextRequiresReadyStatus(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	store.Put(&Document{ID: "d1", Filename: "stuck.txt", Status: StatusProcessing})
	r := NewRegistry(store, 0, nil)

	if _, err := r.Text("d1"); !errdefs.IsValidation(err) {
		t.Errorf("Text(processing) error = %v, want validation error", err)
	}
	if _, err := r.Text("missing"); !errdefs.IsNotFound(err) {
		t.Errorf("Text(missing) error = %v, want not found", err)
	}
}

func TestStoreCopiesDocuments(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	store.Put(&Document{ID: "d1", Filename: "a.txt"})

	got, ok := store.Get("d1")
	if !ok {
		t.Fatal("Get() = false, want stored document")
	}
	got.Filename = "mutated.txt"

	again, _ := store.Get("d1")
	if again.Filename != "a.txt" {
		t.Errorf("Filename after caller mutation = %q, want %q", again.Filename, "a.txt")
	}
}

func TestTextStats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want Stats
	}{
		{
			name: "empty",
			text: "",
			want: Stats{},
		},
		{
			name: "ascii",
			text: "Go is expressive and concise",
			want: Stats{CharCount: 28, WordCount: 5, EstimatedTokens: 7},
		},
		{
			name: "multibyte runes counted once",
			text: "héllo wörld",
			want: Stats{CharCount: 11, WordCount: 2, EstimatedTokens: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tt.want, TextStats(tt.text)); diff != "" {
				t.Errorf("TextStats(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}
