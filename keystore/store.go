package keystore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/securedrop/trustchain/shared/status"
	"github.com/securedrop/trustchain/util"
)

const (
	// RootName is the record name of the trust anchor
	RootName = "root"
	// IntermediateName is the record name of the key that signs journalists
	IntermediateName = "intermediate"
	// JournalistPrefix groups journalist records
	JournalistPrefix = "journalist"
	// FetchingSuffix is appended to a journalist name for its encrypting key record
	FetchingSuffix = "-fetching"

	recordExt = ".json"
)

// Store persists key records by name. Saving a name that already exists overwrites it.
type Store interface {
	SaveRecord(ctx context.Context, r *Record) error
	LoadRecord(ctx context.Context, name string) (*Record, error)
	// ListRecords returns the names of all records directly under prefix, sorted
	ListRecords(ctx context.Context, prefix string) ([]string, error)
}

// FileStore keeps one JSON file per record below a directory
type FileStore struct {
	dir string
}

// NewFileStore opens dir as a key store, creating it if it does not exist
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, status.Wrapf(err, status.IOFailure, "create key directory %s", dir)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, status.Wrapf(err, status.IOFailure, "resolve key directory %s", dir)
	}
	return &FileStore{dir: absDir}, nil
}

// Dir returns the absolute directory of the store
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file holding the record called name
func (s *FileStore) Path(name string) string {
	return s.path(name)
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, filepath.FromSlash(name)+recordExt)
}

// SaveRecord writes r atomically with owner-only permissions
func (s *FileStore) SaveRecord(ctx context.Context, r *Record) error {
	bs, err := EncodeRecord(r)
	if err != nil {
		return err
	}

	file := s.path(r.Name)
	if err := util.WriteBytesWithRestrictedPermission(ctx, file, bs); err != nil {
		return status.Wrapf(err, status.IOFailure, "write %s", file)
	}

	log.WithContext(ctx).Debugf("stored key record %s", r.Name)
	return nil
}

// LoadRecord reads and validates the record called name
func (s *FileStore) LoadRecord(ctx context.Context, name string) (*Record, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}

	file := s.path(name)
	bs, err := util.ReadFile(ctx, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, status.NewKeyNotFoundError(name)
		}
		return nil, status.Wrapf(err, status.IOFailure, "read %s", file)
	}

	r, err := DecodeRecord(bs)
	if err != nil {
		return nil, err
	}

	if r.Name != name {
		return nil, status.Errorf(status.MalformedStorage, "file %s holds record %q", file, r.Name)
	}

	return r, nil
}

// ListRecords returns the names of all records directly under prefix
func (s *FileStore) ListRecords(ctx context.Context, prefix string) ([]string, error) {
	if prefix != "" {
		if err := CheckName(prefix); err != nil {
			return nil, err
		}
	}
	if ctx.Err() != nil {
		return nil, status.Wrapf(ctx.Err(), status.IOFailure, "list %s", prefix)
	}

	dir := filepath.Join(s.dir, filepath.FromSlash(prefix))
	files, err := util.ListFiles(dir, "*"+recordExt)
	if err != nil {
		return nil, status.Wrapf(err, status.IOFailure, "list %s", dir)
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		base := strings.TrimSuffix(filepath.Base(f), recordExt)
		// skip leftovers of interrupted atomic writes
		if strings.HasPrefix(base, ".") {
			continue
		}
		if prefix == "" {
			names = append(names, base)
		} else {
			names = append(names, prefix+"/"+base)
		}
	}

	return names, nil
}
