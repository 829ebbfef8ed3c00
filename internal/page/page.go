// Package page 检查新标签页 HTML 是否正确接入了 videoConfig.js，
// 以及 videoConfig.js 的列表是否与 videos/ 目录一致。
package page

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	FindingMissingVideo   = "missing_video"
	FindingMissingSelect  = "missing_select"
	FindingMissingConfig  = "missing_config_script"
	FindingScriptOrder    = "script_order"
	FindingConfigInvalid  = "config_invalid"
	FindingStaleEntry     = "stale_entry"
	FindingUnlistedFile   = "unlisted_file"
	FindingDuplicateEntry = "duplicate_entry"
)

// 前端脚本依赖的元素 id（见 newtab.js）。
const (
	VideoElementID  = "bg-video"
	SelectElementID = "video-select"
)

// Finding 是一条检查结论。
type Finding struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (f Finding) String() string { return f.Code + ": " + f.Msg }

// Options 描述页面里两个脚本的文件名。
type Options struct {
	// ConfigScript 是生成的配置脚本名（默认 videoConfig.js）。
	ConfigScript string
	// ConsumerScript 是读取 videoList 的脚本名（默认 newtab.js）。
	ConsumerScript string
}

// CheckHTML 解析页面并返回发现的问题；页面无法解析时返回 error。
//
// 规则：
// - 必须存在 video#bg-video 与 select#video-select
// - 必须有 <script src> 指向 ConfigScript
// - ConfigScript 必须出现在第一个使用 videoList 的脚本之前
//   （外链 ConsumerScript，或内联脚本中出现 videoList）
func CheckHTML(html []byte, opt Options) ([]Finding, error) {
	if opt.ConfigScript == "" {
		opt.ConfigScript = "videoConfig.js"
	}
	if opt.ConsumerScript == "" {
		opt.ConsumerScript = "newtab.js"
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	var out []Finding
	if doc.Find("video#"+VideoElementID).Length() == 0 {
		out = append(out, Finding{Code: FindingMissingVideo, Msg: fmt.Sprintf("页面缺少 <video id=%q>", VideoElementID)})
	}
	if doc.Find("select#"+SelectElementID).Length() == 0 {
		out = append(out, Finding{Code: FindingMissingSelect, Msg: fmt.Sprintf("页面缺少 <select id=%q>", SelectElementID)})
	}

	configIdx, consumerIdx := -1, -1
	doc.Find("script").Each(func(i int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			switch scriptName(src) {
			case opt.ConfigScript:
				if configIdx < 0 {
					configIdx = i
				}
			case opt.ConsumerScript:
				if consumerIdx < 0 {
					consumerIdx = i
				}
			}
			return
		}
		if consumerIdx < 0 && strings.Contains(s.Text(), "videoList") {
			consumerIdx = i
		}
	})

	switch {
	case configIdx < 0:
		out = append(out, Finding{Code: FindingMissingConfig, Msg: fmt.Sprintf("页面没有加载 %s", opt.ConfigScript)})
	case consumerIdx >= 0 && consumerIdx < configIdx:
		out = append(out, Finding{Code: FindingScriptOrder, Msg: fmt.Sprintf("%s 必须在使用 videoList 的脚本之前加载", opt.ConfigScript)})
	}
	return out, nil
}

// CompareLists 比较配置中的列表与目录扫描结果（均为文件名）。
// 结果顺序稳定：先按 listed 顺序报告重复/失效项，再按 scanned 顺序报告未收录项。
func CompareLists(listed, scanned []string) []Finding {
	onDisk := make(map[string]struct{}, len(scanned))
	for _, n := range scanned {
		onDisk[n] = struct{}{}
	}

	var out []Finding
	seen := make(map[string]struct{}, len(listed))
	for _, n := range listed {
		if _, dup := seen[n]; dup {
			out = append(out, Finding{Code: FindingDuplicateEntry, Msg: fmt.Sprintf("%q 在 videoList 中重复出现", n)})
			continue
		}
		seen[n] = struct{}{}
		if _, ok := onDisk[n]; !ok {
			out = append(out, Finding{Code: FindingStaleEntry, Msg: fmt.Sprintf("%q 在 videoList 中，但文件不存在", n)})
		}
	}
	for _, n := range scanned {
		if _, ok := seen[n]; !ok {
			out = append(out, Finding{Code: FindingUnlistedFile, Msg: fmt.Sprintf("%q 存在，但未写入 videoList", n)})
		}
	}
	return out
}

// scriptName 取 src 的文件名部分（忽略查询串/片段）。
func scriptName(src string) string {
	src = strings.TrimSpace(src)
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	return path.Base(src)
}
