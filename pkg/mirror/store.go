package mirror

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/studymirror/pkg/catalog"
	"github.com/sidkik/studymirror/pkg/errors"
)

const (
	// DataSuffix is appended to the study ID to get the name of the data
	// artifact.
	DataSuffix = "-data.csv.zip"

	// MetadataSuffix is appended to the study ID to get the name of the
	// metadata artifact.
	MetadataSuffix = "-meta.json"

	artifactMode = 0644
)

// Store is the local mirror of the catalog. All of a study's artifacts live
// directly under the root directory, named after the study ID.
type Store struct {
	fs   afero.Fs
	root string
}

// An Entry is the state of a study's artifacts, as found on disk. Entries are
// never saved. They're recomputed whenever they're needed.
type Entry struct {
	StudyID string

	DataPath    string
	HasData     bool
	DataModTime time.Time

	MetadataPath    string
	HasMetadata     bool
	MetadataModTime time.Time
}

// FreshFor returns whether the entry is a complete mirror of `study`: both
// artifacts must exist, and both must have been written after the study last
// changed. A study with only one artifact is never trusted.
func (e Entry) FreshFor(study catalog.Study) bool {
	return e.HasData && e.DataModTime.After(study.Timestamp) &&
		e.HasMetadata && e.MetadataModTime.After(study.Timestamp)
}

// NewStore creates a Store rooted at `root` on `fs`.
func NewStore(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// Root returns the directory that contains the mirrored artifacts.
func (s *Store) Root() string {
	return s.root
}

// DataPath returns the path of the study's data artifact.
func (s *Store) DataPath(study catalog.Study) string {
	return filepath.Join(s.root, study.ID+DataSuffix)
}

// MetadataPath returns the path of the study's metadata artifact.
func (s *Store) MetadataPath(study catalog.Study) string {
	return filepath.Join(s.root, study.ID+MetadataSuffix)
}

// Inspect looks up the study's artifacts on disk. Missing artifacts aren't an
// error. They're just reported as absent.
func (s *Store) Inspect(study catalog.Study) (Entry, error) {
	entry := Entry{
		StudyID:      study.ID,
		DataPath:     s.DataPath(study),
		MetadataPath: s.MetadataPath(study),
	}

	var err error
	entry.HasData, entry.DataModTime, err = s.statArtifact(entry.DataPath)
	if err != nil {
		return Entry{}, errors.WithContext(err, "stat data")
	}

	entry.HasMetadata, entry.MetadataModTime, err = s.statArtifact(entry.MetadataPath)
	if err != nil {
		return Entry{}, errors.WithContext(err, "stat metadata")
	}
	return entry, nil
}

// IsStale returns whether the study needs to be downloaded again. Studies
// whose artifacts can't be inspected are treated as stale.
func (s *Store) IsStale(study catalog.Study) bool {
	entry, err := s.Inspect(study)
	if err != nil {
		log.WithError(err).WithField("study", study.ID).Debug(
			"Failed to inspect mirror. Assuming it's stale.")
		return true
	}
	return !entry.FreshFor(study)
}

// WriteDataAtomic replaces the study's data artifact with the contents of
// `data`. Readers either see the old artifact or the complete new one.
func (s *Store) WriteDataAtomic(study catalog.Study, data io.Reader) error {
	return s.writeAtomic(s.DataPath(study), data)
}

// WriteMetadataAtomic replaces the study's metadata artifact with `doc`.
func (s *Store) WriteMetadataAtomic(study catalog.Study, doc []byte) error {
	return s.writeAtomic(s.MetadataPath(study), strings.NewReader(string(doc)))
}

// Scan returns an entry for every study that has at least one artifact in
// the mirror, sorted by study ID. A missing root is an empty mirror.
func (s *Store) Scan() ([]Entry, error) {
	files, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WithContext(err, "read mirror directory")
	}

	entries := map[string]*Entry{}
	getEntry := func(id string) *Entry {
		e, ok := entries[id]
		if !ok {
			study := catalog.Study{ID: id}
			e = &Entry{
				StudyID:      id,
				DataPath:     s.DataPath(study),
				MetadataPath: s.MetadataPath(study),
			}
			entries[id] = e
		}
		return e
	}

	for _, f := range files {
		if f.IsDir() {
			continue
		}

		switch name := f.Name(); {
		case strings.HasSuffix(name, DataSuffix):
			e := getEntry(strings.TrimSuffix(name, DataSuffix))
			e.HasData = true
			e.DataModTime = f.ModTime()
		case strings.HasSuffix(name, MetadataSuffix):
			e := getEntry(strings.TrimSuffix(name, MetadataSuffix))
			e.HasMetadata = true
			e.MetadataModTime = f.ModTime()
		}
	}

	var result []Entry
	for _, e := range entries {
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StudyID < result[j].StudyID
	})
	return result, nil
}

func (s *Store) statArtifact(path string) (exists bool, modTime time.Time, err error) {
	fi, err := s.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, time.Time{}, nil
		}
		return false, time.Time{}, err
	}

	// A directory squatting on the artifact path isn't an artifact.
	if fi.IsDir() {
		return false, time.Time{}, nil
	}
	return true, fi.ModTime(), nil
}

// writeAtomic writes to a temporary file next to `path`, and then renames it
// into place.
func (s *Store) writeAtomic(path string, contents io.Reader) (err error) {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return errors.WithContext(err, "create mirror directory")
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return errors.WithContext(err, "create temp file")
	}
	tmpPath := tmp.Name()

	defer func() {
		if err == nil {
			return
		}
		if removeErr := s.fs.Remove(tmpPath); removeErr != nil && !os.IsNotExist(removeErr) {
			log.WithError(removeErr).WithField("path", tmpPath).Warn(
				"Failed to clean up temporary file. This won't affect future syncs.")
		}
	}()

	if _, err := io.Copy(tmp, contents); err != nil {
		tmp.Close()
		return errors.WithContext(err, "write")
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.WithContext(err, "sync")
	}

	if err := tmp.Close(); err != nil {
		return errors.WithContext(err, "close")
	}

	if err := s.fs.Chmod(tmpPath, artifactMode); err != nil {
		return errors.WithContext(err, "chmod")
	}

	if err := s.fs.Rename(tmpPath, path); err != nil {
		return errors.WithContext(err, "rename into place")
	}
	return nil
}
