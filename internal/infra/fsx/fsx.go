package fsx

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// 通过可替换的函数指针，让测试能稳定模拟 rename/写入失败。
var (
	renameFunc     = os.Rename
	writeFunc      = writeAll
	openFileFunc   = os.OpenFile
	createTempFunc = os.CreateTemp
)

// DefaultPerm 是新建文件的权限；覆盖已有文件时沿用其原权限。
const DefaultPerm os.FileMode = 0o644

// PathTypeConflictError 表示目标路径类型冲突（例如期望文件但实际是目录）。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// WriteFileAtomicReplace 原子写入 path（同目录临时文件 + rename），若目标已存在则覆盖。
//
// 约束：
// - 父目录必须已存在（不会隐式创建）
// - 目标是目录或特殊文件时返回 PathTypeConflictError，且不产生任何写入
// - 目标是符号链接时写到链接指向的文件，链接本身保留
// - 已有目标文件本身不可写（如只读）时返回错误，不会被 rename 覆盖
// - 目录不可写但目标文件可写时，退化为原地截断写入
// - 任一步失败都会清理临时文件，原有目标文件保持不变
func WriteFileAtomicReplace(path string, data []byte) error {
	dst, perm, exists, err := resolveTarget(filepath.Clean(path))
	if err != nil {
		return err
	}
	if exists {
		// 可写性以目标文件为准，而不是所在目录。
		f, err := openFileFunc(dst, os.O_WRONLY, 0)
		if err != nil {
			return err
		}
		_ = f.Close()
	}

	err = writeFileAtomic(dst, data, perm)
	var tmpErr *tempFileError
	if exists && errors.As(err, &tmpErr) && errors.Is(err, fs.ErrPermission) {
		return writeFileInPlace(dst, data)
	}
	return err
}

// tempFileError 标记“无法在目标目录创建临时文件”。
type tempFileError struct{ err error }

func (e *tempFileError) Error() string { return e.err.Error() }
func (e *tempFileError) Unwrap() error { return e.err }

func resolveTarget(dst string) (string, os.FileMode, bool, error) {
	fi, err := os.Lstat(dst)
	if err != nil {
		if os.IsNotExist(err) {
			return dst, DefaultPerm, false, nil
		}
		return "", 0, false, err
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(dst)
		if err != nil {
			// 悬空链接：按 ofstream 语义会创建链接目标，这里保持一致。
			target, rerr := os.Readlink(dst)
			if rerr != nil {
				return "", 0, false, err
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(dst), target)
			}
			return filepath.Clean(target), DefaultPerm, false, nil
		}
		return resolveTarget(resolved)
	}

	if fi.IsDir() {
		return "", 0, false, &PathTypeConflictError{Path: dst, Want: "file", Got: "dir"}
	}
	if !fi.Mode().IsRegular() {
		return "", 0, false, &PathTypeConflictError{Path: dst, Want: "regular file", Got: fi.Mode().Type().String()}
	}
	return dst, fi.Mode().Perm(), true, nil
}

func writeFileAtomic(dst string, data []byte, perm os.FileMode) error {
	dir, name := filepath.Split(dst)
	if dir == "" {
		dir = "."
	}

	// 创建同目录临时文件（前缀带 '.'，避免被静态服务器当作资源列出）。
	tmp, err := createTempFunc(dir, "."+name+".tmp-*")
	if err != nil {
		return &tempFileError{err: err}
	}
	tmpName := tmp.Name()
	renamed := false
	defer func() {
		_ = tmp.Close()
		if !renamed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := writeFunc(tmp, data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := renameFunc(tmpName, dst); err != nil {
		return err
	}
	renamed = true

	// 目录 fsync：best-effort（不同平台/文件系统的语义差异很大）。
	_ = syncDirBestEffort(dir)
	return nil
}

// writeFileInPlace 截断并原地写入已存在的 dst（与 ofstream 覆盖语义一致，非原子）。
func writeFileInPlace(dst string, data []byte) error {
	f, err := openFileFunc(dst, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if err := writeFunc(f, data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func syncDirBestEffort(dir string) error {
	// Windows 上目录 Sync 的语义与支持情况不稳定，这里直接跳过。
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
