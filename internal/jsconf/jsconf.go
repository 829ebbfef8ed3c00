// Package jsconf 生成与解析前端使用的 videoConfig.js。
//
// 文件格式固定（前端按 <script src> 直接加载）：
//
//	// videoConfig.js
//	// (this file is auto-generated)
//
//	const videoList = [
//	    "name1.mp4",
//	    "name2.webm"
//	];
package jsconf

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/John-Robertt/videoconf/internal/infra/fsx"
)

const (
	// VarName 是前端脚本读取的全局变量名。
	VarName = "videoList"

	headerLine1 = "// videoConfig.js"
	headerLine2 = "// (this file is auto-generated)"
	indent      = "    "
)

// OutputError 表示目标文件无法打开/写入。
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("无法打开 %s 进行写入：%v", e.Path, e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }

// Render 按固定格式生成文件内容；names 的顺序原样保留。
func Render(names []string) []byte {
	var b bytes.Buffer
	b.WriteString(headerLine1 + "\n")
	b.WriteString(headerLine2 + "\n")
	b.WriteString("\n")
	b.WriteString("const " + VarName + " = [\n")
	for i, n := range names {
		b.WriteString(indent)
		b.WriteString(Quote(n))
		if i < len(names)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("];\n")
	return b.Bytes()
}

// Quote 把文件名编码为 JS 字符串字面量。
//
// 普通文件名输出为 "name"；含 '"'、'\\'、控制字符或 U+2028/U+2029 时转义，
// 保证生成的文件始终是合法 JS。'<'、'>'、'&' 不转义。
func Quote(s string) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	// string 的编码不会失败。
	_ = enc.Encode(s)
	return string(bytes.TrimSuffix(b.Bytes(), []byte("\n")))
}

// Write 生成内容并原子覆盖 path（不做备份）。
func Write(path string, names []string) error {
	if err := fsx.WriteFileAtomicReplace(path, Render(names)); err != nil {
		return &OutputError{Path: path, Err: err}
	}
	return nil
}
