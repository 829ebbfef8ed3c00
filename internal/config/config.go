package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
	"github.com/joho/godotenv"
)

const (
	// ErrCodeInvalid 表示配置文件/环境变量无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeBadExt 表示扩展名列表中有非法项（空、含路径分隔符或空白）。
	ErrCodeBadExt = "config_bad_ext"
	// ErrCodeBadPattern 表示 exclude 中有无法编译的 glob。
	ErrCodeBadPattern = "config_bad_pattern"
)

const (
	// DefaultDir 是扫描的子目录（相对 cwd）。
	DefaultDir = "videos"
	// DefaultOutput 是生成的配置文件（相对 cwd）。
	DefaultOutput = "videoConfig.js"
	// FileName 是可选配置文件名（位于 cwd）。
	FileName = "videoconf.toml"
	// EnvFileName 是可选的 .env 文件名（位于 cwd）。
	EnvFileName = ".env"
	// EnvPrefix 是所有环境变量的前缀。
	EnvPrefix = "VIDEOCONF_"
)

// DefaultExts 返回内置的视频扩展名允许列表。
func DefaultExts() []string {
	return []string{".mp4", ".webm", ".ogv"}
}

// CLIArgs 是命令行能覆盖的字段，并保留“是否显式指定”的信息，
// 这样 --sort=false 才能覆盖配置文件里的 sort = true。
type CLIArgs struct {
	ConfigPath string

	Dir    string
	DirSet bool

	Output    string
	OutputSet bool

	Exts    []string
	ExtsSet bool

	Exclude    []string
	ExcludeSet bool

	Sort    bool
	SortSet bool

	LogLevel    string
	LogLevelSet bool
}

// FileConfig 对应 videoconf.toml 的结构。
type FileConfig struct {
	Dir      string   `toml:"dir"`
	Output   string   `toml:"output"`
	Exts     []string `toml:"exts"`
	Exclude  []string `toml:"exclude"`
	Sort     *bool    `toml:"sort"`
	LogLevel string   `toml:"log_level"`
}

// EffectiveConfig 是合并后的最终配置，实现层直接消费。
type EffectiveConfig struct {
	// Dir/Output 是 clean + absolute 路径。
	Dir    string
	Output string

	// DirLabel/OutputLabel 是面向用户展示的原始写法（例如 "videos"）。
	DirLabel    string
	OutputLabel string

	Exts     []string
	Exclude  []string
	Sort     bool
	LogLevel slog.Level

	// ConfigFile 是实际读取到的配置文件路径；未读取则为空。
	ConfigFile string
}

// Default 返回不依赖任何外部输入的默认配置。
func Default(cwd string) EffectiveConfig {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		cwdAbs = filepath.Clean(cwd)
	}
	return EffectiveConfig{
		Dir:         filepath.Join(cwdAbs, DefaultDir),
		Output:      filepath.Join(cwdAbs, DefaultOutput),
		DirLabel:    DefaultDir,
		OutputLabel: DefaultOutput,
		Exts:        DefaultExts(),
		Exclude:     []string{},
		LogLevel:    slog.LevelWarn,
	}
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	where := ""
	if e.Path != "" {
		where = fmt.Sprintf("（%s）", e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s%s：%v", e.Code, where, e.Err)
	}
	return e.Code + where
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取配置文件与环境变量，然后与 CLI 参数合并为最终配置。
//
// 覆盖优先级（固定）：CLI > 进程环境变量 > <cwd>/.env > 配置文件 > 内置默认。
//
// 配置文件：--config 指定时必须存在；否则尝试 <cwd>/videoconf.toml（可选）。
// 三者都缺省时，结果与 Default(cwd) 相同。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	required := false
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		required = true
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if required && !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: os.ErrNotExist}
	}
	if !exists {
		cfgPath = ""
	}

	envPath := filepath.Join(cwdAbs, EnvFileName)
	env, err := readEnv(envPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: envPath, Err: err}
	}

	return merge(cwdAbs, cli, env, fc, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, env map[string]string, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	eff := Default(cwdAbs)
	eff.ConfigFile = cfgPath

	// dir / output：CLI > env > config > 默认
	dir := pickString(DefaultDir, fc.Dir, env["DIR"], cli.Dir, cli.DirSet)
	output := pickString(DefaultOutput, fc.Output, env["OUTPUT"], cli.Output, cli.OutputSet)
	if strings.TrimSpace(dir) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("dir 不能为空")}
	}
	if strings.TrimSpace(output) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("output 不能为空")}
	}
	eff.DirLabel = filepath.Clean(strings.TrimSpace(dir))
	eff.OutputLabel = filepath.Clean(strings.TrimSpace(output))
	eff.Dir = absCleanFrom(cwdAbs, dir)
	eff.Output = absCleanFrom(cwdAbs, output)
	if eff.Dir == eff.Output {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("output 不能与 dir 相同：%q", eff.OutputLabel)}
	}

	// exts：CLI > env > config > 默认
	exts := eff.Exts
	if len(fc.Exts) > 0 {
		exts = fc.Exts
	}
	if v, ok := env["EXTS"]; ok {
		exts = splitList(v)
	}
	if cli.ExtsSet {
		exts = cli.Exts
	}
	norm, err := NormalizeExts(exts)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeBadExt, Path: cfgPath, Err: err}
	}
	eff.Exts = norm

	// exclude：CLI > env > config > 默认（空）
	exclude := fc.Exclude
	if v, ok := env["EXCLUDE"]; ok {
		exclude = splitList(v)
	}
	if cli.ExcludeSet {
		exclude = cli.Exclude
	}
	eff.Exclude = make([]string, 0, len(exclude))
	for _, p := range exclude {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := glob.Compile(p); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeBadPattern, Path: cfgPath, Err: fmt.Errorf("exclude 模式 %q 无效：%w", p, err)}
		}
		eff.Exclude = append(eff.Exclude, p)
	}

	// sort：CLI > env > config > 默认 false
	if fc.Sort != nil {
		eff.Sort = *fc.Sort
	}
	if v, ok := env["SORT"]; ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: EnvPrefix + "SORT", Err: err}
		}
		eff.Sort = b
	}
	if cli.SortSet {
		eff.Sort = cli.Sort
	}

	// log_level：CLI > env > config > 默认 warn
	level := pickString("", fc.LogLevel, env["LOG_LEVEL"], cli.LogLevel, cli.LogLevelSet)
	if strings.TrimSpace(level) != "" {
		lv, err := ParseLevel(level)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		eff.LogLevel = lv
	}

	return eff, nil
}

// NormalizeExts 把扩展名规范为小写、带前导 '.'，并去重（保持首次出现顺序）。
func NormalizeExts(exts []string) ([]string, error) {
	if len(exts) == 0 {
		return nil, fmt.Errorf("扩展名列表不能为空")
	}
	out := make([]string, 0, len(exts))
	seen := make(map[string]struct{}, len(exts))
	for _, raw := range exts {
		e := strings.ToLower(strings.TrimSpace(raw))
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if e == "." || strings.ContainsAny(e, `/\ `+"\t") || strings.Count(e, ".") != 1 {
			return nil, fmt.Errorf("扩展名 %q 无效", raw)
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}

// ParseLevel 解析 debug/info/warn/error（大小写不敏感）。
func ParseLevel(s string) (slog.Level, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log_level 只能是 debug/info/warn/error，实际是 %q", s)
	}
	return lv, nil
}

func pickString(def, file, env, cli string, cliSet bool) string {
	v := def
	if strings.TrimSpace(file) != "" {
		v = file
	}
	if strings.TrimSpace(env) != "" {
		v = env
	}
	if cliSet {
		v = cli
	}
	return v
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	md, err := toml.Decode(string(b), &fc)
	if err != nil {
		return FileConfig{}, true, err
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return FileConfig{}, true, fmt.Errorf("未知字段 %q", undec[0].String())
	}
	return fc, true, nil
}

// readEnv 返回去掉前缀后的 VIDEOCONF_* 变量：.env 文件打底，进程环境覆盖。
func readEnv(dotenv string) (map[string]string, error) {
	out := map[string]string{}

	fileVars, err := godotenv.Read(dotenv)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	for k, v := range fileVars {
		if name, ok := strings.CutPrefix(k, EnvPrefix); ok {
			out[name] = v
		}
	}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if name, ok := strings.CutPrefix(k, EnvPrefix); ok {
			out[name] = v
		}
	}
	return out, nil
}
