package store

import (
	"context"
	"errors"
	"io"
	"time"
)

// Store 负责管理 manifest 文件的读写。磁盘布局遵循：
//
//	<ManifestDir>/<name>    # 例如 1f2e3d4c.manifest
//
// 每个条目仅由正文文件组成，ModTime/Size 由文件系统提供。
type Store interface {
	// Get 返回一个可流式读取的条目。不存在或目标为目录时返回 ErrNotFound。
	Get(ctx context.Context, name string) (*ReadResult, error)

	// Put 通过临时文件 + rename 原子写入正文，父目录不存在时自动创建。
	Put(ctx context.Context, name string, body io.Reader, opts PutOptions) (*Entry, error)

	// Update 在同名锁内读取现有正文并写回 fn 的结果；条目不存在时返回 ErrNotFound，
	// fn 返回错误时不写入。
	Update(ctx context.Context, name string, fn func([]byte) ([]byte, error)) (*Entry, error)

	// Remove 删除正文文件，文件不存在视为成功。
	Remove(ctx context.Context, name string) error
}

// PutOptions 控制写入过程中的可选属性。
type PutOptions struct {
	ModTime time.Time
}

// Entry 描述一个已落盘的条目，包含绝对文件路径及文件信息。
type Entry struct {
	Name      string    `json:"name"`
	FilePath  string    `json:"file_path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// ReadResult 组合 Entry 与正文 Reader，便于 HTTP 层直接流式返回。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadSeekCloser
}

// ErrNotFound 表示条目不存在。
var ErrNotFound = errors.New("store entry not found")

// ReadAll 读取条目全部内容并关闭 Reader。
func ReadAll(ctx context.Context, s Store, name string) ([]byte, *Entry, error) {
	result, err := s.Get(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	defer result.Reader.Close()

	body, err := io.ReadAll(result.Reader)
	if err != nil {
		return nil, nil, err
	}
	return body, &result.Entry, nil
}
