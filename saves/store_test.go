package saves

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gogpu/rmask"
	"github.com/gogpu/rmask/codec"
)

func newTestStore(t *testing.T, limit int) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "saves"), limit)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func paintedDocument(t *testing.T) (*rmask.Snapshot, *codec.Document) {
	t.Helper()
	store := rmask.NewLayerStore(16, 16)
	store.Create()
	store.Create()
	for i, l := range store.Layers() {
		c := l.Color.RGB
		for y := i * 8; y < i*8+6; y++ {
			for x := 2; x < 12; x++ {
				l.Raster.SetPix(x, y, [4]uint8{c[0], c[1], c[2], 255})
			}
		}
	}
	store.SetPrompt(0, "black cat")
	store.SetPrompt(1, "café au lait")
	snap := &rmask.Snapshot{Layers: store}
	doc, err := codec.Encode(snap).Document()
	if err != nil {
		t.Fatal(err)
	}
	return snap, doc
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t, 5)
	snap, doc := paintedDocument(t)

	name, err := s.Save(context.Background(), Request{
		Name:           "my mask!",
		Document:       doc,
		BasePrompt:     "garden",
		NegativePrompt: "blurry",
	})
	if err != nil {
		t.Fatalf("Save() = %v", err)
	}
	if name != "mymask" {
		t.Errorf("name = %q, want sanitized %q", name, "mymask")
	}

	rec, err := s.Load(name)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if rec.BasePrompt != "garden" || rec.NegativePrompt != "blurry" || rec.IsAuto {
		t.Errorf("record = %+v", rec)
	}
	if rec.Document.Prompts["2"] != "café au lait" {
		t.Errorf("prompts = %v", rec.Document.Prompts)
	}

	st, err := codec.DecodeDocument(context.Background(), rec.Document)
	if err != nil {
		t.Fatalf("DecodeDocument() = %v", err)
	}
	if st.Reconstructed || st.Layers.Len() != 2 {
		t.Fatalf("decoded %d layers, reconstructed %v", st.Layers.Len(), st.Reconstructed)
	}
	for i, l := range st.Layers.Layers() {
		if !l.Raster.Equal(snap.Layers.Layer(i).Raster) {
			t.Errorf("layer %d differs after save and load", i)
		}
	}
	if st.Layers.Layer(0).Prompt != "black cat" {
		t.Errorf("layer 0 prompt = %q", st.Layers.Layer(0).Prompt)
	}

	// The file itself is the viewable composite.
	data, err := os.ReadFile(filepath.Join(s.Dir(), name+".png"))
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("save file is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() != 16 {
		t.Errorf("image width = %d", img.Bounds().Dx())
	}
}

func TestLoadImageWithoutState(t *testing.T) {
	s := newTestStore(t, 5)
	_, doc := paintedDocument(t)
	data, err := codec.ParseDataURL(doc.Mask)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir(), "plain.png"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	rec, err := s.Load("plain")
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if rec.Document.Layers != "[]" {
		t.Errorf("Layers = %q, want []", rec.Document.Layers)
	}
	st, err := codec.DecodeDocument(context.Background(), rec.Document)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Reconstructed || st.Layers.Len() != 2 {
		t.Errorf("expected 2 reconstructed layers, got %d (reconstructed %v)", st.Layers.Len(), st.Reconstructed)
	}
}

func TestSaveRefusesBlank(t *testing.T) {
	s := newTestStore(t, 5)
	store := rmask.NewLayerStore(8, 8)
	store.Create()
	doc, err := codec.Encode(&rmask.Snapshot{Layers: store}).Document()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(context.Background(), Request{Name: "empty", Document: doc}); !errors.Is(err, ErrBlank) {
		t.Errorf("Save(blank) = %v, want ErrBlank", err)
	}
	if _, err := s.Save(context.Background(), Request{Name: "none", Document: &codec.Document{}}); !errors.Is(err, ErrNoImage) {
		t.Errorf("Save(no image) = %v, want ErrNoImage", err)
	}
	entries, _ := s.List()
	if len(entries) != 0 {
		t.Errorf("refused saves left %d files", len(entries))
	}
}

func TestAutoSavePruning(t *testing.T) {
	s := newTestStore(t, 2)
	_, doc := paintedDocument(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, Request{Name: "keeper", Document: doc}); err != nil {
		t.Fatal(err)
	}
	var names []string
	for i := 0; i < 4; i++ {
		name, err := s.Save(ctx, Request{Name: "  ", Document: doc})
		if err != nil {
			t.Fatalf("auto save %d: %v", i, err)
		}
		if IsCustomName(name) {
			t.Errorf("auto save name %q classified as custom", name)
		}
		rec, err := s.Load(name)
		if err != nil || !rec.IsAuto {
			t.Errorf("auto save %q: IsAuto = %v, err %v", name, rec != nil && rec.IsAuto, err)
		}
		names = append(names, name)
	}
	if names[0] != "2025-03-01_12-00-01" {
		t.Errorf("first auto name = %q", names[0])
	}

	entries, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]bool{}
	for _, e := range entries {
		got[e.Name] = true
	}
	if len(entries) != 3 || !got["keeper"] || !got[names[2]] || !got[names[3]] {
		t.Errorf("after pruning: %v, want keeper plus %s and %s", got, names[2], names[3])
	}
}

func TestListOrderAndDelete(t *testing.T) {
	s := newTestStore(t, 5)
	_, doc := paintedDocument(t)
	ctx := context.Background()
	for _, n := range []string{"alpha", "beta", "gamma"} {
		if _, err := s.Save(ctx, Request{Name: n, Document: doc}); err != nil {
			t.Fatal(err)
		}
	}
	base := time.Now().Add(-time.Hour)
	for i, n := range []string{"beta", "gamma", "alpha"} {
		mt := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(filepath.Join(s.Dir(), n+".png"), mt, mt); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"alpha", "gamma", "beta"}
	for i, e := range entries {
		if e.Name != want[i] || !e.Custom || e.Size == 0 {
			t.Errorf("entry %d = %+v, want %s", i, e, want[i])
		}
	}

	if err := s.Delete(ctx, "gamma"); err != nil {
		t.Fatalf("Delete() = %v", err)
	}
	if err := s.Delete(ctx, "gamma"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() = %v, want ErrNotFound", err)
	}
	if _, err := s.Load("gamma"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(deleted) = %v, want ErrNotFound", err)
	}
	if _, err := s.Load("../etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(path) = %v, want ErrNotFound", err)
	}
}

func TestNames(t *testing.T) {
	tests := []struct {
		in     string
		clean  string
		custom bool
	}{
		{"2025-01-02_03-04-05", "2025-01-02_03-04-05", false},
		{"my_mask", "my_mask", true},
		{"2025_plan", "2025_plan", true},
		{"20xx-1_a", "20xx-1_a", false},
		{" a/b c.png ", "abcpng", true},
		{"caf\u00e9 n\u00b02", "caf\u00e9n2", true},
		{"\u732b.png", "\u732bpng", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.clean {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.clean)
			}
			if got := IsCustomName(tt.clean); got != tt.custom {
				t.Errorf("IsCustomName(%q) = %v, want %v", tt.clean, got, tt.custom)
			}
		})
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestTextChunk(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.NRGBA{R: 9, A: 255})
	data := encodePNG(t, img)

	out, err := AddText(data, "Key", "first")
	if err != nil {
		t.Fatalf("AddText() = %v", err)
	}
	out, err = AddText(out, "Key", "second")
	if err != nil {
		t.Fatal(err)
	}
	text, ok, err := ReadText(out, "Key")
	if err != nil || !ok || text != "second" {
		t.Errorf("ReadText() = %q, %v, %v", text, ok, err)
	}
	if _, ok, _ := ReadText(out, "Other"); ok {
		t.Error("ReadText found a missing keyword")
	}
	back, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("PNG with text chunk no longer decodes: %v", err)
	}
	if c := color.NRGBAModel.Convert(back.At(1, 1)).(color.NRGBA); c.R != 9 {
		t.Errorf("pixel = %v", c)
	}

	if _, err := AddText(data, "Key", "é"); err == nil {
		t.Error("non-ASCII text accepted")
	}
	if _, _, err := ReadText([]byte("GIF89a"), "Key"); !errors.Is(err, ErrNotPNG) {
		t.Errorf("ReadText(gif) = %v, want ErrNotPNG", err)
	}
	bad := bytes.Clone(out)
	bad[len(pngSignature)+10] ^= 0xff
	if _, _, err := ReadText(bad, "Key"); !errors.Is(err, ErrNotPNG) {
		t.Errorf("corrupted stream = %v, want ErrNotPNG", err)
	}
}

func TestASCIIJSON(t *testing.T) {
	in := map[string]string{"p": "café 🐈 \"q\""}
	raw, _ := json.Marshal(in)
	esc := asciiJSON(raw)
	if !isASCII(string(esc)) {
		t.Fatalf("asciiJSON left non-ASCII: %s", esc)
	}
	var out map[string]string
	if err := json.Unmarshal(esc, &out); err != nil || out["p"] != in["p"] {
		t.Errorf("round trip = %q, %v", out["p"], err)
	}
}

func TestLoadCachesRecords(t *testing.T) {
	s := newTestStore(t, 5)
	_, doc := paintedDocument(t)
	ctx := context.Background()
	if _, err := s.Save(ctx, Request{Name: "cached", Document: doc, BasePrompt: "one"}); err != nil {
		t.Fatal(err)
	}

	first, err := s.Load("cached")
	if err != nil {
		t.Fatal(err)
	}
	first.Document.Prompts["1"] = "mutated"
	first.BasePrompt = "mutated"

	second, err := s.Load("cached")
	if err != nil {
		t.Fatal(err)
	}
	if s.records.Len() != 1 {
		t.Errorf("cached records = %d, want 1", s.records.Len())
	}
	if second.BasePrompt != "one" || second.Document.Prompts["1"] != "black cat" {
		t.Error("caller mutation leaked into the cache")
	}

	if _, err := s.Save(ctx, Request{Name: "cached", Document: doc, BasePrompt: "two"}); err != nil {
		t.Fatal(err)
	}
	third, err := s.Load("cached")
	if err != nil {
		t.Fatal(err)
	}
	if third.BasePrompt != "two" {
		t.Errorf("BasePrompt = %q after overwrite, want two", third.BasePrompt)
	}
}
