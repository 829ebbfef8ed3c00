package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/John-Robertt/videoconf/internal/app/run"
	"github.com/John-Robertt/videoconf/internal/config"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 把 run 层的阶段事件转成面向用户的中文提示。
//
// 失败提示不在这里输出（由 reportFailure 统一写 stderr）。
type progressUI struct {
	w   io.Writer
	log *slog.Logger

	dirLabel    string
	outputLabel string
}

func newProgressUI(w io.Writer, log *slog.Logger) *progressUI {
	return &progressUI{w: w, log: log}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	p.dirLabel = eff.DirLabel
	p.outputLabel = eff.OutputLabel

	p.log.Debug("生效配置",
		"dir", eff.Dir,
		"output", eff.Output,
		"exts", eff.Exts,
		"exclude", eff.Exclude,
		"sort", eff.Sort,
	)
	fmt.Fprintf(p.w, "正在扫描 %s 文件夹...\n", p.dirLabel)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.log.Debug("阶段完成", "phase", name, "took", formatShortDuration(dur))

	switch name {
	case run.PhaseScan:
		n := intField(fields, "files")
		if n == 0 {
			fmt.Fprintf(p.w, "未在 %s 中找到任何视频文件。\n", p.dirLabel)
			return
		}
		fmt.Fprintf(p.w, "找到了 %d 个视频文件（共 %s）。\n", n, humanize.IBytes(uint64(int64Field(fields, "total_size"))))
	case run.PhaseWrite:
		fmt.Fprintf(p.w, "成功更新 %s!\n", p.outputLabel)
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func intField(fields map[string]any, key string) int {
	return int(int64Field(fields, key))
}

func int64Field(fields map[string]any, key string) int64 {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	default:
		return 0
	}
}
