// Package saves keeps editor states as PNG files in a directory.
//
// Each file is a viewable image (the composite preview, or the clean mask
// when there is none) with the full editor state embedded as JSON in a
// tEXt chunk. Files named from a timestamp are auto-saves; the store
// keeps only the newest Limit of them. Anything else is a custom save and
// is never pruned.
package saves

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/flock"
	"github.com/h2non/filetype"

	"github.com/gogpu/rmask"
	"github.com/gogpu/rmask/codec"
	"github.com/gogpu/rmask/internal/cache"
	"github.com/gogpu/rmask/regional"
)

const (
	// StateKeyword is the tEXt keyword the editor state is stored under.
	StateKeyword = "MRP_State"

	// TimestampLayout names auto-saves.
	TimestampLayout = "2006-01-02_15-04-05"

	// DefaultLimit is the number of auto-saves kept when none is set.
	DefaultLimit = 20

	// blankLevel is the mean channel value above which an image is
	// considered empty.
	blankLevel = 254

	fileExt      = ".png"
	lockFile     = ".rmask.lock"
	lockInterval = 50 * time.Millisecond

	recordCacheSize = 32
)

var (
	// ErrBlank is returned when the image to save is essentially white.
	ErrBlank = errors.New("saves: image is blank")

	// ErrNotFound is returned for a save that does not exist.
	ErrNotFound = errors.New("saves: not found")

	// ErrNoImage is returned when a save request carries no image.
	ErrNoImage = errors.New("saves: nothing to save")
)

// State is the JSON embedded in a save file. Prompts and LayerData are
// JSON documents in their own right, stored as strings.
type State struct {
	BasePrompt    string `json:"base_prompt"`
	BaseNegPrompt string `json:"base_neg_prompt"`
	Prompts       string `json:"prompts"`
	IsAuto        bool   `json:"is_auto"`
	LayerData     string `json:"layer_data"`
	BaseImage     string `json:"base_image"`
	Mask          string `json:"mask,omitempty"`
}

// Request describes one save.
type Request struct {
	// Name is the file name without extension. Characters other than
	// letters, digits, '-' and '_' are dropped; an empty result makes the
	// save an auto-save named after the current time.
	Name string

	Document       *codec.Document
	BasePrompt     string
	NegativePrompt string
}

// Record is a loaded save.
type Record struct {
	Name           string
	Document       *codec.Document
	BasePrompt     string
	NegativePrompt string
	IsAuto         bool
}

// Entry describes a save file.
type Entry struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
	Custom  bool
}

// Store is a directory of save files. Writers in any process serialize
// on a lock file in the directory.
type Store struct {
	dir     string
	limit   int
	lock    *flock.Flock
	now     func() time.Time
	records *cache.Cache[recordKey, *Record]
}

// recordKey identifies one version of a save file. A rewrite changes the
// modification time or size, so stale records are never served.
type recordKey struct {
	name    string
	modTime int64
	size    int64
}

// New opens the store at dir, creating the directory if needed. limit is
// the number of auto-saves kept; values below 1 mean DefaultLimit.
func New(dir string, limit int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("saves: create directory: %w", err)
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Store{
		dir:     dir,
		limit:   limit,
		lock:    flock.New(filepath.Join(dir, lockFile)),
		now:     time.Now,
		records: cache.New[recordKey, *Record](recordCacheSize),
	}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Limit returns the auto-save limit.
func (s *Store) Limit() int { return s.limit }

// Sanitize keeps only letters, digits, '-' and '_' of name.
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsCustomName reports whether a save name was chosen by a user rather
// than generated from a timestamp.
func IsCustomName(name string) bool {
	auto := strings.HasPrefix(name, "20") && strings.Contains(name, "_") && len(name) > 4 && name[4] == '-'
	return !auto
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	ok, err := s.lock.TryLockContext(ctx, lockInterval)
	if err != nil {
		return fmt.Errorf("saves: lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("saves: lock: %w", ctx.Err())
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

// Save writes a save file and returns the name it was stored under.
// Auto-saves beyond the limit are pruned afterwards, oldest first.
func (s *Store) Save(ctx context.Context, req Request) (string, error) {
	doc := req.Document
	if doc == nil {
		return "", ErrNoImage
	}
	src := doc.Composite
	if src == "" {
		src = doc.Mask
	}
	if src == "" {
		return "", ErrNoImage
	}

	name, auto := Sanitize(req.Name), false
	if name == "" {
		name, auto = s.now().Format(TimestampLayout), true
	}

	data, err := pngBytes(src)
	if err != nil {
		return "", err
	}

	state := State{
		BasePrompt:    req.BasePrompt,
		BaseNegPrompt: req.NegativePrompt,
		Prompts:       regional.PromptMap(doc.Prompts).String(),
		IsAuto:        auto,
		LayerData:     doc.Layers,
		BaseImage:     doc.Base,
		Mask:          doc.Mask,
	}
	if state.LayerData == "" {
		state.LayerData = "[]"
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("saves: encode state: %w", err)
	}
	if data, err = AddText(data, StateKeyword, string(asciiJSON(raw))); err != nil {
		return "", err
	}

	err = s.withLock(ctx, func() error {
		if err := writeFileAtomic(s.path(name), data); err != nil {
			return err
		}
		s.forget(name)
		if auto {
			_, err := s.pruneLocked(s.limit)
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	rmask.Logger().Info("saves: saved", "name", name, "auto", auto, "bytes", len(data))
	return name, nil
}

// pngBytes returns the PNG encoding of an image data URL, refusing blank
// images.
func pngBytes(dataURL string) ([]byte, error) {
	data, err := codec.ParseDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("saves: decode image: %w", err)
	}
	if meanLevel(img) > blankLevel {
		return nil, ErrBlank
	}
	if filetype.Is(data, "png") {
		return data, nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("saves: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// meanLevel is the mean of the R, G and B channels over the whole image.
// Alpha is ignored.
func meanLevel(img image.Image) float64 {
	p := rmask.FromImage(img)
	data := p.Data()
	if len(data) == 0 {
		return 255
	}
	var sum uint64
	for i := 0; i < len(data); i += 4 {
		sum += uint64(data[i]) + uint64(data[i+1]) + uint64(data[i+2])
	}
	return float64(sum) / float64(len(data)/4*3)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".save-*")
	if err != nil {
		return fmt.Errorf("saves: write: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("saves: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saves: write: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saves: write: %w", err)
	}
	return nil
}

// Load reads a save. A file without embedded state loads as a mask with
// no layer data, so layers are rebuilt from its colors on decode.
func (s *Store) Load(name string) (*Record, error) {
	if name == "" || Sanitize(name) != name {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	path := s.path(name)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("saves: read: %w", err)
	}
	key := recordKey{name: name, modTime: info.ModTime().UnixNano(), size: info.Size()}
	if rec, ok := s.records.Get(key); ok {
		return rec.clone(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("saves: read: %w", err)
	}

	text, ok, err := ReadText(data, StateKeyword)
	if err != nil {
		return nil, err
	}
	state := State{Prompts: "{}", LayerData: "[]"}
	if ok {
		if err := json.Unmarshal([]byte(text), &state); err != nil {
			rmask.Logger().Warn("saves: malformed state, loading image only", "name", name, "err", err)
			state = State{Prompts: "{}", LayerData: "[]"}
		}
	}

	preview := codec.DataURL(data)
	doc := &codec.Document{
		Mask:      state.Mask,
		Composite: preview,
		Layers:    state.LayerData,
		Base:      state.BaseImage,
	}
	if doc.Mask == "" {
		doc.Mask = preview
	}
	if prompts, err := regional.Parse(state.Prompts); err == nil {
		doc.Prompts = prompts
	}
	rec := &Record{
		Name:           name,
		Document:       doc,
		BasePrompt:     state.BasePrompt,
		NegativePrompt: state.BaseNegPrompt,
		IsAuto:         state.IsAuto,
	}
	s.records.Set(key, rec)
	return rec.clone(), nil
}

func (r *Record) clone() *Record {
	c := *r
	doc := *r.Document
	doc.Prompts = make(map[string]string, len(r.Document.Prompts))
	for k, v := range r.Document.Prompts {
		doc.Prompts[k] = v
	}
	c.Document = &doc
	return &c
}

// forget drops cached records of a save.
func (s *Store) forget(name string) {
	s.records.DeleteFunc(func(k recordKey) bool { return k.name == name })
}

// Delete removes a save.
func (s *Store) Delete(ctx context.Context, name string) error {
	if name == "" || Sanitize(name) != name {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return s.withLock(ctx, func() error {
		s.forget(name)
		err := os.Remove(s.path(name))
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		if err != nil {
			return fmt.Errorf("saves: delete: %w", err)
		}
		rmask.Logger().Info("saves: deleted", "name", name)
		return nil
	})
}

// List returns every save, newest first.
func (s *Store) List() ([]Entry, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("saves: list: %w", err)
	}
	var entries []Entry
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), fileExt) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(d.Name(), fileExt)
		entries = append(entries, Entry{
			Name:    name,
			Path:    filepath.Join(s.dir, d.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Custom:  IsCustomName(name),
		})
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := b.ModTime.Compare(a.ModTime); c != 0 {
			return c
		}
		return strings.Compare(b.Name, a.Name)
	})
	return entries, nil
}

// Prune deletes the oldest auto-saves beyond limit and returns their
// names. Custom saves are never pruned.
func (s *Store) Prune(ctx context.Context, limit int) ([]string, error) {
	var removed []string
	err := s.withLock(ctx, func() error {
		var err error
		removed, err = s.pruneLocked(limit)
		return err
	})
	return removed, err
}

func (s *Store) pruneLocked(limit int) ([]string, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	var auto []Entry
	for _, e := range entries {
		if !e.Custom {
			auto = append(auto, e)
		}
	}
	if len(auto) <= limit {
		return nil, nil
	}
	var removed []string
	for _, e := range auto[max(limit, 0):] {
		if err := os.Remove(e.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			rmask.Logger().Warn("saves: prune failed", "name", e.Name, "err", err)
			continue
		}
		s.forget(e.Name)
		removed = append(removed, e.Name)
	}
	rmask.Logger().Info("saves: pruned auto-saves", "removed", len(removed), "limit", limit)
	return removed, nil
}
