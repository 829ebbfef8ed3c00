package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/videoconf/internal/app/run"
	"github.com/John-Robertt/videoconf/internal/config"
	"github.com/John-Robertt/videoconf/internal/domain"
	"github.com/John-Robertt/videoconf/internal/jsconf"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if code != 0 {
		os.Exit(code)
	}
}

// exitError 把退出码从 RunE 带回 main（cobra 只认 error）。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit %d", e.code)
}

func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// execute 是 main 的可测试版本：返回进程退出码。
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)

	var ee *exitError
	if err != nil && !errors.As(err, &ee) {
		// cobra 自身的错误（未知命令/多余参数等）按用法错误处理。
		fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
		fmt.Fprint(stderr, root.UsageString())
		return 2
	}
	return exitCode(err)
}

type rootFlags struct {
	configPath string
	dir        string
	output     string
	exts       []string
	exclude    []string
	sort       bool
	logLevel   string

	noWait bool
	json   bool
	dryRun bool
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	f := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "videoconf",
		Short: "扫描 videos 文件夹并生成 videoConfig.js",
		Long: `videoconf - 扫描 videos 文件夹，生成新标签页使用的 videoConfig.js

不带任何参数时：扫描 ./videos/ 中的 .mp4/.webm/.ogv 文件（不递归），
覆盖写入 ./videoConfig.js。可选配置文件 ./videoconf.toml 与 VIDEOCONF_* 环境变量。`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, f, stdin, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.Version = version
	cmd.SetVersionTemplate("videoconf {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "配置文件路径（默认 ./"+config.FileName+"，可选）")
	pf.StringVar(&f.dir, "dir", config.DefaultDir, "扫描的视频目录")
	pf.StringVar(&f.output, "output", config.DefaultOutput, "生成的配置文件")
	pf.StringSliceVar(&f.exts, "ext", config.DefaultExts(), "视频扩展名（可重复或逗号分隔）")
	pf.StringSliceVar(&f.exclude, "exclude", nil, "按文件名排除的 glob 模式（可重复）")
	pf.StringVar(&f.logLevel, "log-level", "warn", "日志级别：debug|info|warn|error")
	pf.BoolVar(&f.json, "json", false, "以 JSON 输出结果到 stdout")

	cmd.Flags().BoolVar(&f.sort, "sort", false, "按文件名排序（默认保持目录枚举顺序）")
	cmd.Flags().BoolVar(&f.noWait, "no-wait", false, "完成后不等待回车")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "只扫描并把结果打印到 stdout，不写文件")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
		fmt.Fprint(stderr, c.UsageString())
		return &exitError{code: 2, err: err}
	})

	cmd.AddCommand(newCheckCmd(f, stdout, stderr))
	return cmd
}

// loadConfig 合并 flag/环境变量/配置文件；只有显式给出的 flag 才参与覆盖。
func loadConfig(cmd *cobra.Command, f *rootFlags) (config.EffectiveConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, fmt.Errorf("读取当前目录失败：%w", err)
	}
	changed := cmd.Flags().Changed
	return config.LoadEffective(cwd, config.CLIArgs{
		ConfigPath:  f.configPath,
		Dir:         f.dir,
		DirSet:      changed("dir"),
		Output:      f.output,
		OutputSet:   changed("output"),
		Exts:        f.exts,
		ExtsSet:     changed("ext"),
		Exclude:     f.exclude,
		ExcludeSet:  changed("exclude"),
		Sort:        f.sort,
		SortSet:     changed("sort"),
		LogLevel:    f.logLevel,
		LogLevelSet: changed("log-level"),
	})
}

func runGenerate(cmd *cobra.Command, f *rootFlags, stdin io.Reader, stdout, stderr io.Writer) error {
	// --json 时 stdout 只输出一个 JSON；人类可读信息改走 stderr。
	human := stdout
	if f.json {
		human = stderr
	}

	eff, err := loadConfig(cmd, f)
	if err != nil {
		fmt.Fprintf(stderr, "配置错误：%v\n", err)
		if f.json {
			code := config.Code(err)
			if code == "" {
				code = domain.ErrCodeConfigInvalid
			}
			rr := domain.RunReport{}
			rr.Fail(code, err.Error())
			rr.Finalize()
			emitJSON(stdout, rr)
		}
		return &exitError{code: 1, err: err}
	}

	logger := newLogger(stderr, eff.LogLevel)
	if eff.ConfigFile != "" {
		logger.Info("已读取配置文件", "path", eff.ConfigFile)
	}

	rr := run.Execute(cmd.Context(), eff, run.Options{DryRun: f.dryRun, Logger: logger}, newProgressUI(human, logger))

	if f.json {
		emitJSON(stdout, rr)
	}
	if rr.Failed() {
		reportFailure(stderr, eff, rr)
		return &exitError{code: 1, err: errors.New(rr.ErrorMsg)}
	}

	if f.dryRun {
		if !f.json {
			_, _ = stdout.Write(jsconf.Render(rr.Files))
		}
		return nil
	}

	if !f.noWait && isInteractive(stdin) {
		fmt.Fprintln(human, "请按回车键退出...")
		waitForEnter(cmd.Context(), stdin)
	}
	return nil
}

func reportFailure(w io.Writer, eff config.EffectiveConfig, rr domain.RunReport) {
	switch rr.ErrorCode {
	case domain.ErrCodeMissingDir:
		fmt.Fprintf(w, "错误: %s 文件夹未找到!\n", eff.DirLabel)
		fmt.Fprintf(w, "请确保此程序与 '%s' 文件夹在同一目录下。\n", eff.DirLabel)
	case domain.ErrCodeOutputFailed:
		fmt.Fprintf(w, "错误: 无法打开 %s 进行写入!\n", eff.OutputLabel)
		fmt.Fprintf(w, "原因：%s\n", rr.ErrorMsg)
	case domain.ErrCodeCanceled:
		fmt.Fprintln(w, "已取消，未写入任何文件。")
	default:
		fmt.Fprintf(w, "错误: %s\n", rr.ErrorMsg)
	}
}

func emitJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
		NoColor:    !isTerminal(w),
	}))
}

// isInteractive 判断是否应等待回车（测试中可替换）。
var isInteractive = func(r io.Reader) bool { return isTerminal(r) }

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// waitForEnter 读取一行输入；EOF 也视为确认。ctx 结束（Ctrl-C）时立即返回。
func waitForEnter(ctx context.Context, r io.Reader) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = bufio.NewReader(r).ReadString('\n')
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
