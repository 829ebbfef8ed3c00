package run

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/John-Robertt/videoconf/internal/config"
	"github.com/John-Robertt/videoconf/internal/domain"
	"github.com/John-Robertt/videoconf/internal/jsconf"
	"github.com/John-Robertt/videoconf/internal/scan"
)

// Options 是与配置无关的运行开关。
type Options struct {
	// DryRun 为 true 时只扫描，不写输出文件。
	DryRun bool
	Logger *slog.Logger
}

// Execute 依次执行 扫描 -> 写出，并返回 RunReport。
//
// 任一阶段失败立即返回（RunReport.Status=failed），不会进入后续阶段：
// 扫描失败时输出文件保持原样。
func Execute(ctx context.Context, eff config.EffectiveConfig, opt Options, obs Observer) domain.RunReport {
	log := opt.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	rr := domain.RunReport{
		Dir:       eff.Dir,
		Output:    eff.Output,
		DryRun:    opt.DryRun,
		StartedAt: time.Now().UTC(),
	}
	finish := func() domain.RunReport {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	if obs != nil {
		obs.OnStart(eff)
	}

	if err := ctx.Err(); err != nil {
		rr.Fail(domain.ErrCodeCanceled, err.Error())
		return finish()
	}

	scanStarted := time.Now()
	files, err := scan.ScanVideos(eff.Dir, scan.Options{
		Exts:    eff.Exts,
		Exclude: eff.Exclude,
		Sort:    eff.Sort,
		Logger:  log,
	})
	if err != nil {
		code := domain.ErrCodeScanFailed
		if scan.IsMissingDir(err) {
			code = domain.ErrCodeMissingDir
		}
		log.Debug("扫描失败", "dir", eff.Dir, "err", err)
		rr.Fail(code, err.Error())
		return finish()
	}
	rr.Files = domain.Names(files)
	rr.TotalSize = domain.TotalSize(files)
	log.Info("扫描完成", "dir", eff.Dir, "files", len(files), "sorted", eff.Sort)

	if obs != nil {
		obs.OnPhaseDone(PhaseScan, map[string]any{
			"files":      len(files),
			"total_size": rr.TotalSize,
		}, time.Since(scanStarted))
	}

	if opt.DryRun {
		return finish()
	}

	// 写出前最后一次检查取消：取消后不应再改动输出文件。
	if err := ctx.Err(); err != nil {
		rr.Fail(domain.ErrCodeCanceled, err.Error())
		return finish()
	}

	writeStarted := time.Now()
	if err := jsconf.Write(eff.Output, rr.Files); err != nil {
		log.Debug("写入失败", "output", eff.Output, "err", err)
		rr.Fail(domain.ErrCodeOutputFailed, outputCause(err))
		return finish()
	}
	log.Info("写入完成", "output", eff.Output, "entries", len(rr.Files))

	if obs != nil {
		obs.OnPhaseDone(PhaseWrite, map[string]any{
			"output":  eff.Output,
			"entries": len(rr.Files),
		}, time.Since(writeStarted))
	}

	return finish()
}

// outputCause 取写入失败的根因（如 "permission denied"），
// 不带 OutputError 的前缀，也不暴露临时文件路径。
func outputCause(err error) string {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	var oe *jsconf.OutputError
	if errors.As(err, &oe) && oe.Err != nil {
		return oe.Err.Error()
	}
	return err.Error()
}
