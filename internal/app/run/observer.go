package run

import (
	"time"

	"github.com/John-Robertt/videoconf/internal/config"
)

// Observer 用于把“阶段进度”从核心执行流程中解耦出来。
//
// run 包只负责发事件，不做任何输出；展示方式由 CLI 决定。
type Observer interface {
	// OnStart 在扫描开始前调用。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段成功结束时调用（scan / write）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
}

const (
	PhaseScan  = "scan"
	PhaseWrite = "write"
)
