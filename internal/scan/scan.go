package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"

	"github.com/John-Robertt/videoconf/internal/domain"
)

// Options 控制一次扫描。
type Options struct {
	// Exts 是小写、带前导 '.' 的扩展名允许列表。
	Exts []string
	// Exclude 是对文件名（不含目录）匹配的 glob 模式；命中则丢弃。
	Exclude []string
	// Sort 为 true 时按文件名字典序输出；否则保持目录枚举顺序。
	Sort bool
	// Logger 为 nil 时不输出调试日志。
	Logger *slog.Logger
}

// MissingDirError 表示扫描目录不存在或不是目录。
type MissingDirError struct {
	Dir string
	Err error
}

func (e *MissingDirError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s 文件夹未找到：%v", e.Dir, e.Err)
	}
	return fmt.Sprintf("%s 文件夹未找到（不是目录）", e.Dir)
}

func (e *MissingDirError) Unwrap() error { return e.Err }

// IsMissingDir 判断 err 是否为 MissingDirError。
func IsMissingDir(err error) bool {
	var e *MissingDirError
	return errors.As(err, &e)
}

// 测试用：替换目录打开方式，以模拟读取中途失败。
var openDir = func(dir string) (dirReader, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	return f, nil
}

type dirReader interface {
	ReadDir(n int) ([]fs.DirEntry, error)
	Close() error
}

// ScanVideos 列出 dir 下（不递归）扩展名在允许列表内的普通文件。
//
// 规则：
// - 只看直接子项；子目录、设备文件跳过；符号链接按目标判断（指向普通文件才算）
// - 扩展名按小写比较；返回的 Name 保留原始大小写
// - 默认保持文件系统的枚举顺序（os.ReadDir 会排序，这里不用它）
// - 文件名不是合法 UTF-8 时跳过并记录 warn
// - 没有匹配文件时返回空切片，不是错误
//
// 扫描阶段只做 stat（DirEntry.Info），不读文件内容。
func ScanVideos(dir string, opt Options) ([]domain.VideoFile, error) {
	log := opt.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	fi, err := os.Stat(dir)
	if err != nil {
		return nil, &MissingDirError{Dir: dir, Err: err}
	}
	if !fi.IsDir() {
		return nil, &MissingDirError{Dir: dir}
	}

	allowed := make(map[string]struct{}, len(opt.Exts))
	for _, e := range opt.Exts {
		allowed[strings.ToLower(e)] = struct{}{}
	}
	excluded, err := compileGlobs(opt.Exclude)
	if err != nil {
		return nil, err
	}

	d, err := openDir(dir)
	if err != nil {
		return nil, err
	}
	entries, err := d.ReadDir(-1)
	_ = d.Close()
	if err != nil {
		return nil, fmt.Errorf("读取目录 %s 失败：%w", dir, err)
	}

	files := make([]domain.VideoFile, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() && e.Type()&fs.ModeSymlink == 0 {
			log.Debug("跳过非普通文件", "name", name, "type", e.Type().String())
			continue
		}

		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := allowed[ext]; !ok {
			log.Debug("跳过非视频文件", "name", name, "ext", ext)
			continue
		}
		if !utf8.ValidString(name) {
			// JS 字符串无法原样表示非 UTF-8 字节，写进去前端也找不到这个文件。
			log.Warn("跳过非 UTF-8 文件名", "name", fmt.Sprintf("%q", name))
			continue
		}
		if matchesAny(name, excluded) {
			log.Debug("跳过被排除的文件", "name", name)
			continue
		}

		info, err := entryInfo(dir, e)
		if err != nil {
			// 枚举与 stat 之间被删除，或是悬空/循环链接：跳过。
			if errors.Is(err, fs.ErrNotExist) || e.Type()&fs.ModeSymlink != 0 {
				log.Debug("文件不存在", "name", name)
				continue
			}
			return nil, err
		}
		if !info.Mode().IsRegular() {
			log.Debug("跳过非普通文件", "name", name, "type", info.Mode().Type().String())
			continue
		}

		files = append(files, domain.VideoFile{
			Name:    name,
			Ext:     ext,
			Size:    info.Size(),
			ModUnix: info.ModTime().Unix(),
		})
	}

	if opt.Sort {
		sort.SliceStable(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	}
	return files, nil
}

// entryInfo 返回目录项的 stat 结果；符号链接按其指向的目标判断。
func entryInfo(dir string, e fs.DirEntry) (fs.FileInfo, error) {
	if e.Type()&fs.ModeSymlink != 0 {
		return os.Stat(filepath.Join(dir, e.Name()))
	}
	return e.Info()
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("exclude 模式 %q 无效：%w", p, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

func matchesAny(name string, patterns []glob.Glob) bool {
	for _, g := range patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}
