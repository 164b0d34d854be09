package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// tempPrefix 是写入中的临时文件前缀，watch 包据此忽略这些文件。
const tempPrefix = ".manifest-"

// IsTempFile 判断文件名是否为 Put 过程中产生的临时文件。
func IsTempFile(name string) bool {
	return strings.HasPrefix(filepath.Base(name), tempPrefix)
}

// NewStore 以 basePath 为根目录构建文件存储，整站复用一份实例。
func NewStore(fsys afero.Fs, basePath string) (Store, error) {
	if fsys == nil {
		return nil, errors.New("filesystem required")
	}
	if basePath == "" {
		return nil, errors.New("store path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve store path: %w", err)
	}

	if err := fsys.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create store path: %w", err)
	}

	return &fileStore{
		fs:       fsys,
		basePath: abs,
		locks:    make(map[string]*entryLock),
	}, nil
}

// fileStore 通过 entryLock 避免同一名称并发写入，同时复用 basePath。
type fileStore struct {
	fs       afero.Fs
	basePath string

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) Get(ctx context.Context, name string) (*ReadResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	filePath, err := s.entryPath(name)
	if err != nil {
		return nil, err
	}

	info, err := s.fs.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	f, err := s.fs.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &ReadResult{
		Entry: Entry{
			Name:      name,
			FilePath:  filePath,
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		},
		Reader: f,
	}, nil
}

func (s *fileStore) Put(ctx context.Context, name string, body io.Reader, opts PutOptions) (*Entry, error) {
	unlock := s.lockEntry(name)
	defer unlock()

	return s.write(ctx, name, body, opts)
}

func (s *fileStore) Update(ctx context.Context, name string, fn func([]byte) ([]byte, error)) (*Entry, error) {
	unlock := s.lockEntry(name)
	defer unlock()

	current, _, err := ReadAll(ctx, s, name)
	if err != nil {
		return nil, err
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, name, bytes.NewReader(next), PutOptions{})
}

func (s *fileStore) Remove(ctx context.Context, name string) error {
	unlock := s.lockEntry(name)
	defer unlock()

	filePath, err := s.entryPath(name)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// write 需在持有同名锁时调用。
func (s *fileStore) write(ctx context.Context, name string, body io.Reader, opts PutOptions) (*Entry, error) {
	filePath, err := s.entryPath(name)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(filePath)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	tempFile, err := afero.TempFile(s.fs, dir, tempPrefix+"*")
	if err != nil {
		return nil, err
	}
	tempName := tempFile.Name()

	written, err := copyWithContext(ctx, tempFile, body)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(tempName)
		return nil, err
	}

	if err := s.fs.Chmod(tempName, 0o644); err != nil {
		_ = s.fs.Remove(tempName)
		return nil, err
	}

	if err := s.fs.Rename(tempName, filePath); err != nil {
		_ = s.fs.Remove(tempName)
		return nil, err
	}

	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = time.Now().UTC()
	}
	if err := s.fs.Chtimes(filePath, modTime, modTime); err != nil {
		return nil, err
	}

	return &Entry{
		Name:      name,
		FilePath:  filePath,
		SizeBytes: written,
		ModTime:   modTime,
	}, nil
}

func (s *fileStore) lockEntry(name string) func() {
	key := path.Clean("/" + name)
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

func (s *fileStore) entryPath(name string) (string, error) {
	rel := path.Clean("/" + filepath.ToSlash(name))
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return "", errors.New("entry name required")
	}

	filePath := filepath.Join(s.basePath, filepath.FromSlash(rel))
	if filePath != s.basePath && !strings.HasPrefix(filePath, s.basePath+string(filepath.Separator)) {
		return "", errors.New("invalid entry path")
	}
	return filePath, nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
