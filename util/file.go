package util

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
)

const (
	// maxReadFileSize bounds ReadFile. Key records and config files are a few hundred bytes.
	maxReadFileSize = 1024 * 1024

	secretDirPerm  os.FileMode = 0700
	secretFilePerm os.FileMode = 0600
)

// WriteBytesWithRestrictedPermission replaces file with bs. The parent directory is created if
// required and restricted to the owner; readers never observe a partially written file.
func WriteBytesWithRestrictedPermission(ctx context.Context, file string, bs []byte) error {
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, secretDirPerm); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := os.Chmod(dir, secretDirPerm); err != nil {
		return fmt.Errorf("restrict %s: %w", dir, err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(file)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := fillTemp(ctx, tmp, bs); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}

	// last chance to give up before the old content is replaced
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}

	if err := os.Rename(tmpName, file); err != nil {
		return fmt.Errorf("move %s to %s: %w", tmpName, file, err)
	}
	committed = true

	return nil
}

func fillTemp(ctx context.Context, f *os.File, bs []byte) error {
	if err := f.Chmod(secretFilePerm); err != nil {
		return fmt.Errorf("set temp file permissions: %w", err)
	}

	setDeadline(ctx, f)

	if _, err := f.Write(bs); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return f.Sync()
}

func setDeadline(ctx context.Context, f *os.File) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return
	}
	// regular files have no deadline support on most platforms
	if err := f.SetDeadline(deadline); err != nil && !errors.Is(err, os.ErrNoDeadline) {
		log.Tracef("failed to set deadline on %s: %v", f.Name(), err)
	}
}

// ReadFile reads at most maxReadFileSize bytes of file, giving up once ctx is done
func ReadFile(ctx context.Context, file string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	setDeadline(ctx, f)

	bs, err := io.ReadAll(io.LimitReader(f, maxReadFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(bs) > maxReadFileSize {
		return nil, fmt.Errorf("file %s too large: maximum size is %d bytes", file, maxReadFileSize)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}

	return bs, nil
}

// ListFiles returns the sorted full paths of the files in dir matching the shell pattern.
// A missing dir yields no files.
func ListFiles(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}

	sort.Strings(matches)
	return matches, nil
}
