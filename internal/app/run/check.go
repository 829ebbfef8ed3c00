package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/John-Robertt/videoconf/internal/config"
	"github.com/John-Robertt/videoconf/internal/domain"
	"github.com/John-Robertt/videoconf/internal/jsconf"
	"github.com/John-Robertt/videoconf/internal/page"
	"github.com/John-Robertt/videoconf/internal/scan"
)

// DefaultPage 是默认检查的新标签页文件（相对 cwd）。
const DefaultPage = "newtab.html"

// CheckReport 是 check 命令的结果。
type CheckReport struct {
	Page     string         `json:"page"`
	Output   string         `json:"output"`
	Dir      string         `json:"dir"`
	Findings []page.Finding `json:"findings"`
}

// OK 表示没有任何发现。
func (r CheckReport) OK() bool { return len(r.Findings) == 0 }

// Check 只读地检查：页面接入是否正确、videoConfig.js 是否与目录一致。
//
// pagePath 为空时跳过页面检查。扫描目录不存在等无法继续的情况返回 error。
func Check(ctx context.Context, eff config.EffectiveConfig, pagePath string, opt Options) (CheckReport, error) {
	cr := CheckReport{
		Page:     pagePath,
		Output:   eff.Output,
		Dir:      eff.Dir,
		Findings: []page.Finding{},
	}

	if pagePath != "" {
		html, err := os.ReadFile(pagePath)
		if err != nil {
			return cr, fmt.Errorf("读取页面 %s 失败：%w", pagePath, err)
		}
		fs, err := page.CheckHTML(html, page.Options{ConfigScript: filepath.Base(eff.Output)})
		if err != nil {
			return cr, fmt.Errorf("解析页面 %s 失败：%w", pagePath, err)
		}
		cr.Findings = append(cr.Findings, fs...)
	}

	if err := ctx.Err(); err != nil {
		return cr, err
	}

	files, err := scan.ScanVideos(eff.Dir, scan.Options{
		Exts:    eff.Exts,
		Exclude: eff.Exclude,
		Logger:  opt.Logger,
	})
	if err != nil {
		return cr, err
	}

	b, err := os.ReadFile(eff.Output)
	if err != nil {
		cr.Findings = append(cr.Findings, page.Finding{Code: page.FindingConfigInvalid, Msg: fmt.Sprintf("无法读取 %s：%v", eff.OutputLabel, err)})
		return cr, nil
	}
	listed, err := jsconf.Parse(b)
	if err != nil {
		cr.Findings = append(cr.Findings, page.Finding{Code: page.FindingConfigInvalid, Msg: err.Error()})
		return cr, nil
	}

	cr.Findings = append(cr.Findings, page.CompareLists(listed, domain.Names(files))...)
	return cr, nil
}
