package jsconf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
)

var declRe = regexp.MustCompile(`(?m)^\s*(?:const|let|var)\s+` + VarName + `\s*=\s*\[`)

// ParseError 描述无法解析的 videoConfig.js。
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("videoConfig.js 解析失败（offset %d）：%s", e.Offset, e.Msg)
}

// Parse 从 videoConfig.js 中读出 videoList 的文件名列表（保持顺序）。
//
// 接受 Render 的输出，也容忍末尾多余的逗号、空白以及 let/var 声明。
func Parse(src []byte) ([]string, error) {
	loc := declRe.FindIndex(src)
	if loc == nil {
		return nil, &ParseError{Offset: 0, Msg: "未找到 " + VarName + " 声明"}
	}

	p := parser{src: src, pos: loc[1]}
	names := make([]string, 0, 16)
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("数组未闭合")
		}
		if p.peek() == ']' {
			p.pos++
			return names, nil
		}

		s, err := p.str()
		if err != nil {
			return nil, err
		}
		names = append(names, s)

		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("数组未闭合")
		}
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			// 下一轮收尾。
		default:
			return nil, p.errorf("期望 ',' 或 ']'，实际 %q", p.peek())
		}
	}
}

type parser struct {
	src []byte
	pos int
}

func (p *parser) eof() bool  { return p.pos >= len(p.src) }
func (p *parser) peek() byte { return p.src[p.pos] }

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\r', '\n':
			p.pos++
		case '/':
			// 行注释。
			if p.pos+1 < len(p.src) && p.src[p.pos+1] == '/' {
				if i := bytes.IndexByte(p.src[p.pos:], '\n'); i >= 0 {
					p.pos += i + 1
				} else {
					p.pos = len(p.src)
				}
				continue
			}
			return
		default:
			return
		}
	}
}

func (p *parser) str() (string, error) {
	if p.peek() != '"' {
		return "", p.errorf("期望字符串，实际 %q", p.peek())
	}
	start := p.pos
	i := p.pos + 1
	for i < len(p.src) {
		switch p.src[i] {
		case '\\':
			i += 2
			continue
		case '"':
			var s string
			if err := json.Unmarshal(p.src[start:i+1], &s); err != nil {
				return "", &ParseError{Offset: start, Msg: fmt.Sprintf("字符串字面量无效：%v", err)}
			}
			p.pos = i + 1
			return s, nil
		case '\n':
			return "", &ParseError{Offset: start, Msg: "字符串未闭合"}
		}
		i++
	}
	return "", &ParseError{Offset: start, Msg: "字符串未闭合"}
}
