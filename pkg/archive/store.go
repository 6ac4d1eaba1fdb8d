// Package archive manages the on-disk deployment artifact store: a
// "current" slot holding the files actively served, plus a history of
// timestamped snapshots of previous deployments for rollback and
// debugging.
//
// Layout under the store root (conventionally "server/"):
//
//	server/
//	  <scoring module>, <preprocessing module>, ...
//	  deployment_info.json
//	  archives/
//	    2025-10-06_14-30-15/
//	      <copied artifacts>
//	      archive_info.json
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	archivesDirName = "archives"
	infoFileName    = "deployment_info.json"
	archiveInfoName = "archive_info.json"

	// timestampLayout names archive directories. Colons are avoided so
	// the names stay portable across filesystems.
	timestampLayout = "2006-01-02_15-04-05"

	// DefaultKeep is the retention count used by Trim when the caller
	// does not override it.
	DefaultKeep = 5
)

// ErrArchiveIO is the sentinel for filesystem failures while snapshotting
// the current artifact set. A failed archive must block promotion of new
// artifacts, so callers treat it as fatal for the whole deployment session.
var ErrArchiveIO = errors.New("archive I/O failure")

// Store is a directory-backed archive of deployment artifacts. All
// mutation of the current slot goes through ArchiveCurrent, Promote, and
// Fresh; concurrent stores over the same root are the caller's problem
// (single writer per logical endpoint).
type Store struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for non-fatal events such as cleanup.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// WithClock pins the store clock, used by tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore returns a Store rooted at dir. The directory is created if
// missing.
func NewStore(dir string, opts ...StoreOption) (*Store, error) {
	if dir == "" {
		return nil, errors.New("archive store: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive store: creating root %s: %w", dir, err)
	}
	s := &Store{
		root:   dir,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// ArchiveCurrent snapshots the current artifact set into a new timestamped
// archive directory and writes its archive_info.json record. The current
// slot is copied, not moved: it must stay usable until a new deployment is
// confirmed. When no current set exists this is a no-op returning
// (nil, nil) — a first deployment has nothing to archive.
//
// Any filesystem error aborts the whole operation and is reported via
// ErrArchiveIO.
func (s *Store) ArchiveCurrent(reason string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, info, err := s.readCurrent()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 && info == nil {
		s.logger.Info("no current deployment to archive", "root", s.root)
		return nil, nil
	}

	dir, name, err := s.newArchiveDir()
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if err := copyFile(filepath.Join(s.root, f), filepath.Join(dir, f)); err != nil {
			// Abort: remove the partial snapshot so a half-written
			// entry never shows up in List.
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("%w: copying %s: %v", ErrArchiveIO, f, err)
		}
	}

	archivedAt := s.now()
	record := DeploymentInfo{
		DeploymentFiles: files,
		DeploymentType:  "unknown",
		ArchivedAt:      &archivedAt,
		Reason:          reason,
		ArchiveLocation: dir,
	}
	if info != nil {
		record.DeployedAt = info.DeployedAt
		record.SourceInfo = info.SourceInfo
		record.DeploymentType = info.DeploymentType
	}
	if err := writeJSON(filepath.Join(dir, archiveInfoName), &record); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: writing %s: %v", ErrArchiveIO, archiveInfoName, err)
	}

	s.logger.Info("archived current deployment",
		"entry", name,
		"files", len(files),
		"reason", reason)

	return &Entry{
		Name:      name,
		Path:      dir,
		CreatedAt: archivedAt,
		Info:      &record,
	}, nil
}

// Promote replaces the current slot's contents with the given artifact
// set and metadata. New files are staged into a hidden directory inside
// the root, renamed into place, and the deployment_info.json manifest is
// renamed last: the manifest rename is the commit point, so a reader
// going through Current observes either the old record or the new one,
// never a half-written manifest describing missing files. Files of the
// previous deployment that are absent from the new set are removed after
// the commit — the slot is a replacement, not a union.
func (s *Store) Promote(set ArtifactSet, info DeploymentInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(set.Files) == 0 {
		return errors.New("archive store: promote requires at least one artifact")
	}

	prevFiles, _, err := s.readCurrent()
	if err != nil {
		return err
	}

	staging, err := os.MkdirTemp(s.root, ".staging-")
	if err != nil {
		return fmt.Errorf("archive store: creating staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if info.DeployedAt.IsZero() {
		info.DeployedAt = s.now()
	}
	info.DeploymentFiles = nil
	if info.SourceInfo == nil {
		info.SourceInfo = make(map[string]string, len(set.Files))
	}
	for _, a := range set.Files {
		if a.Name == "" {
			return errors.New("archive store: artifact with empty name")
		}
		if err := copyFile(a.SourcePath, filepath.Join(staging, a.Name)); err != nil {
			return fmt.Errorf("archive store: staging %s: %w", a.Name, err)
		}
		info.DeploymentFiles = append(info.DeploymentFiles, a.Name)
		info.SourceInfo[a.Name] = a.SourcePath
	}
	sort.Strings(info.DeploymentFiles)

	if err := writeJSON(filepath.Join(staging, infoFileName), &info); err != nil {
		return fmt.Errorf("archive store: staging manifest: %w", err)
	}

	// Swap: artifacts first, manifest last.
	for _, name := range info.DeploymentFiles {
		if err := os.Rename(filepath.Join(staging, name), filepath.Join(s.root, name)); err != nil {
			return fmt.Errorf("archive store: installing %s: %w", name, err)
		}
	}
	if err := os.Rename(filepath.Join(staging, infoFileName), filepath.Join(s.root, infoFileName)); err != nil {
		return fmt.Errorf("archive store: installing manifest: %w", err)
	}

	// The new manifest is committed; clear out whatever the previous
	// deployment left behind under other names.
	installed := make(map[string]bool, len(info.DeploymentFiles))
	for _, name := range info.DeploymentFiles {
		installed[name] = true
	}
	for _, name := range prevFiles {
		if installed[name] {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("archive store: removing stale artifact %s: %w", name, err)
		}
		s.logger.Info("removed stale artifact from current slot", "file", name)
	}

	s.logger.Info("promoted new deployment artifacts",
		"files", len(info.DeploymentFiles),
		"type", info.DeploymentType)
	return nil
}

// Current returns the manifest of the active deployment without copying
// any file contents. Returns (nil, nil) when no deployment exists.
func (s *Store) Current() (*DeploymentInfo, error) {
	data, err := os.ReadFile(filepath.Join(s.root, infoFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("archive store: reading manifest: %w", err)
	}
	var info DeploymentInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("archive store: parsing manifest: %w", err)
	}
	return &info, nil
}

// List enumerates archive entries newest first. The directory is re-read
// on each call so archives created by other processes are reflected.
func (s *Store) List() ([]Entry, error) {
	dirents, err := os.ReadDir(filepath.Join(s.root, archivesDirName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("archive store: reading archives dir: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		created, ok := parseEntryName(d.Name())
		if !ok {
			continue
		}
		e := Entry{
			Name:      d.Name(),
			Path:      filepath.Join(s.root, archivesDirName, d.Name()),
			CreatedAt: created,
		}
		if data, err := os.ReadFile(filepath.Join(e.Path, archiveInfoName)); err == nil {
			var info DeploymentInfo
			if json.Unmarshal(data, &info) == nil {
				e.Info = &info
			}
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		// Collision-disambiguated siblings share a timestamp; the
		// higher suffix is the newer entry.
		return entries[i].Name > entries[j].Name
	})
	return entries, nil
}

// Trim deletes all but the keep most-recent archive entries, oldest
// first. The current slot is never touched. Trimming a store with fewer
// than keep entries is a no-op.
func (s *Store) Trim(keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	entries, err := s.List()
	if err != nil {
		return 0, err
	}
	if len(entries) <= keep {
		return 0, nil
	}

	removed := 0
	for _, e := range entries[keep:] {
		if err := os.RemoveAll(e.Path); err != nil {
			return removed, fmt.Errorf("archive store: removing %s: %w", e.Name, err)
		}
		s.logger.Info("removed old archive entry", "entry", e.Name)
		removed++
	}
	return removed, nil
}

// Fresh archives whatever currently occupies the current slot under a
// manual-cleanup reason, then clears the slot so the next deployment
// starts clean. A store with an empty current slot is left unchanged.
func (s *Store) Fresh(reason string) (*Entry, error) {
	if reason == "" {
		reason = "manual-cleanup"
	}
	entry, err := s.ArchiveCurrent(reason)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	files, _, err := s.readCurrent()
	if err != nil {
		return nil, err
	}
	// Manifest first: once it is gone the slot reads as empty, so an
	// interrupted clear never leaves a manifest naming missing files.
	if err := os.Remove(filepath.Join(s.root, infoFileName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("archive store: clearing manifest: %w", err)
	}
	for _, f := range files {
		if err := os.Remove(filepath.Join(s.root, f)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("archive store: clearing %s: %w", f, err)
		}
	}
	return entry, nil
}

// Structure renders the store's directory tree, for the CLI structure
// command.
func (s *Store) Structure() (string, error) {
	var b strings.Builder
	b.WriteString(filepath.Base(s.root) + "/\n")
	if err := writeTree(&b, s.root, ""); err != nil {
		return "", fmt.Errorf("archive store: walking %s: %w", s.root, err)
	}
	return b.String(), nil
}

// readCurrent lists the regular files of the current slot (manifest
// excluded) and loads the manifest when present. Hidden staging dirs and
// the archives directory are skipped.
func (s *Store) readCurrent() ([]string, *DeploymentInfo, error) {
	dirents, err := os.ReadDir(s.root)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading %s: %v", ErrArchiveIO, s.root, err)
	}

	var files []string
	for _, d := range dirents {
		if d.IsDir() || d.Name() == infoFileName || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		files = append(files, d.Name())
	}
	sort.Strings(files)

	info, err := s.Current()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrArchiveIO, err)
	}
	return files, info, nil
}

// newArchiveDir creates a fresh timestamp-named directory under archives/,
// appending -2, -3, ... on collision so entries are never overwritten.
func (s *Store) newArchiveDir() (string, string, error) {
	base := s.now().Format(timestampLayout)
	parent := filepath.Join(s.root, archivesDirName)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", "", fmt.Errorf("%w: creating archives dir: %v", ErrArchiveIO, err)
	}

	name := base
	for i := 2; ; i++ {
		dir := filepath.Join(parent, name)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", "", fmt.Errorf("%w: creating %s: %v", ErrArchiveIO, name, err)
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
}

// parseEntryName extracts the creation timestamp from an archive directory
// name, tolerating the collision suffix.
func parseEntryName(name string) (time.Time, bool) {
	stamp := name
	if len(stamp) > len(timestampLayout) {
		stamp = stamp[:len(timestampLayout)]
	}
	t, err := time.ParseInLocation(timestampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp-" + uuid.NewString()[:8]
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func writeTree(b *strings.Builder, dir, prefix string) error {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for i, d := range dirents {
		connector := "├── "
		childPrefix := prefix + "│   "
		if i == len(dirents)-1 {
			connector = "└── "
			childPrefix = prefix + "    "
		}
		b.WriteString(prefix + connector + d.Name() + "\n")
		if d.IsDir() {
			if err := writeTree(b, filepath.Join(dir, d.Name()), childPrefix); err != nil {
				return err
			}
		}
	}
	return nil
}
