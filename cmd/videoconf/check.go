package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/videoconf/internal/app/run"
	"github.com/John-Robertt/videoconf/internal/scan"
)

func newCheckCmd(f *rootFlags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "check [page.html]",
		Short: "检查页面接入与 videoConfig.js 是否过期（只读）",
		Long: `检查新标签页（默认 ./newtab.html）是否正确加载了 videoConfig.js，
并比较 videoConfig.js 中的列表与 videos 文件夹的实际内容。

有任何问题时退出码为 1。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, f, args, stdout, stderr)
		},
	}
}

func runCheck(cmd *cobra.Command, f *rootFlags, args []string, stdout, stderr io.Writer) error {
	eff, err := loadConfig(cmd, f)
	if err != nil {
		fmt.Fprintf(stderr, "配置错误：%v\n", err)
		return &exitError{code: 1, err: err}
	}
	logger := newLogger(stderr, eff.LogLevel)

	pagePath := run.DefaultPage
	if len(args) == 1 {
		pagePath = args[0]
	} else if _, err := os.Stat(pagePath); errors.Is(err, fs.ErrNotExist) {
		// 默认页面不存在：只做列表比较。
		fmt.Fprintf(stderr, "未找到 %s，跳过页面检查。\n", pagePath)
		pagePath = ""
	}

	cr, err := run.Check(cmd.Context(), eff, pagePath, run.Options{Logger: logger})
	if err != nil {
		if scan.IsMissingDir(err) {
			fmt.Fprintf(stderr, "错误: %s 文件夹未找到!\n", eff.DirLabel)
		} else {
			fmt.Fprintf(stderr, "错误: %v\n", err)
		}
		return &exitError{code: 1, err: err}
	}

	if f.json {
		emitJSON(stdout, cr)
	} else if cr.OK() {
		fmt.Fprintln(stdout, "检查通过。")
	} else {
		fmt.Fprintf(stdout, "发现 %d 个问题：\n", len(cr.Findings))
		for _, fd := range cr.Findings {
			fmt.Fprintf(stdout, "  - %s\n", fd)
		}
	}

	if !cr.OK() {
		return &exitError{code: 1}
	}
	return nil
}
