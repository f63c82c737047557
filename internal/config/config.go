package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/John-Robertt/bgvsplit/internal/domain"
)

// ErrCodeInvalid 表示 CLI 参数或环境变量的值不合法（report 里的 error_code）。
const ErrCodeInvalid = domain.ErrCodeConfigInvalid

const (
	// DefaultSampleRate 是导出文件的默认采样率。
	DefaultSampleRate = 44100
	// DefaultOffsetRate 是估计偏移时的默认采样率。
	DefaultOffsetRate = 16000
	// DefaultFFmpeg 是默认的 ffmpeg 可执行文件（从 PATH 查找）。
	DefaultFFmpeg = "ffmpeg"

	minSampleRate = 8000
	maxSampleRate = 192000
)

// 环境变量名。
const (
	EnvPath          = "BGVSPLIT_PATH"
	EnvApply         = "BGVSPLIT_APPLY"
	EnvOverwrite     = "BGVSPLIT_OVERWRITE"
	EnvRate          = "BGVSPLIT_RATE"
	EnvMeasureOffset = "BGVSPLIT_MEASURE_OFFSET"
	EnvOffsetRate    = "BGVSPLIT_OFFSET_RATE"
	EnvFFmpeg        = "BGVSPLIT_FFMPEG"
	EnvLogLevel      = "BGVSPLIT_LOG_LEVEL"
)

// CLIArgs 保留每个参数"是否显式指定"的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖 BGVSPLIT_APPLY=1。
type CLIArgs struct {
	// Path 为位置参数；空串表示未提供。
	Path string

	Apply    bool
	ApplySet bool

	Overwrite    bool
	OverwriteSet bool

	Rate    int
	RateSet bool

	MeasureOffset    bool
	MeasureOffsetSet bool

	OffsetRate    int
	OffsetRateSet bool

	FFmpeg    string
	FFmpegSet bool

	LogLevel    string
	LogLevelSet bool
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Path string

	Apply     bool
	Overwrite bool

	SampleRate int

	MeasureOffset bool
	OffsetRate    int

	FFmpegBin string
	LogLevel  slog.Level
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	// Key 为出问题的参数名或环境变量名。
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s：%s 无效：%v", e.Code, e.Key, e.Err)
	}
	return fmt.Sprintf("%s：%s 无效", e.Code, e.Key)
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

// LookupEnv 与 os.LookupEnv 同签名，测试可注入。
type LookupEnv func(key string) (string, bool)

// LoadEffective 把 CLI 参数与环境变量合并为最终配置。
//
// 覆盖优先级（固定）：CLI 显式指定 > 环境变量 > 默认值。
// path 未提供时使用 cwd；相对路径以 cwd 为基准。
func LoadEffective(cwd string, cli CLIArgs, env LookupEnv) (EffectiveConfig, error) {
	if env == nil {
		env = os.LookupEnv
	}
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Key: "cwd", Err: err}
	}

	path := strings.TrimSpace(cli.Path)
	if path == "" {
		path = envStr(env, EnvPath, "")
	}
	if path == "" {
		path = cwdAbs
	}

	apply, err := pickBool(cli.Apply, cli.ApplySet, env, EnvApply, false)
	if err != nil {
		return EffectiveConfig{}, err
	}
	overwrite, err := pickBool(cli.Overwrite, cli.OverwriteSet, env, EnvOverwrite, false)
	if err != nil {
		return EffectiveConfig{}, err
	}
	measure, err := pickBool(cli.MeasureOffset, cli.MeasureOffsetSet, env, EnvMeasureOffset, false)
	if err != nil {
		return EffectiveConfig{}, err
	}

	rate, err := pickRate("--rate", cli.Rate, cli.RateSet, env, EnvRate, DefaultSampleRate)
	if err != nil {
		return EffectiveConfig{}, err
	}
	offsetRate, err := pickRate("--offset-rate", cli.OffsetRate, cli.OffsetRateSet, env, EnvOffsetRate, DefaultOffsetRate)
	if err != nil {
		return EffectiveConfig{}, err
	}

	ffmpeg := envStr(env, EnvFFmpeg, DefaultFFmpeg)
	if cli.FFmpegSet {
		ffmpeg = strings.TrimSpace(cli.FFmpeg)
	}
	if ffmpeg == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Key: "--ffmpeg", Err: errors.New("不能为空")}
	}

	levelText, levelKey := envStr(env, EnvLogLevel, "warn"), EnvLogLevel
	if cli.LogLevelSet {
		levelText, levelKey = cli.LogLevel, "--log-level"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(levelText))); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Key: levelKey, Err: err}
	}

	return EffectiveConfig{
		Path:          absCleanFrom(cwdAbs, path),
		Apply:         apply,
		Overwrite:     overwrite,
		SampleRate:    rate,
		MeasureOffset: measure,
		OffsetRate:    offsetRate,
		FFmpegBin:     ffmpeg,
		LogLevel:      level,
	}, nil
}

// ValidateRate 校验采样率范围 [8000, 192000]。
func ValidateRate(key string, v int) error {
	if v < minSampleRate || v > maxSampleRate {
		return &Error{Code: ErrCodeInvalid, Key: key, Err: fmt.Errorf("采样率必须在 [%d, %d] 内，实际 %d", minSampleRate, maxSampleRate, v)}
	}
	return nil
}

func pickBool(cliV, cliSet bool, env LookupEnv, key string, def bool) (bool, error) {
	if cliSet {
		return cliV, nil
	}
	s, ok := env(key)
	if !ok || strings.TrimSpace(s) == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, &Error{Code: ErrCodeInvalid, Key: key, Err: err}
	}
	return v, nil
}

func pickRate(flag string, cliV int, cliSet bool, env LookupEnv, key string, def int) (int, error) {
	if cliSet {
		return cliV, ValidateRate(flag, cliV)
	}
	s, ok := env(key)
	if !ok || strings.TrimSpace(s) == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &Error{Code: ErrCodeInvalid, Key: key, Err: err}
	}
	return v, ValidateRate(key, v)
}

func envStr(env LookupEnv, key, def string) string {
	if s, ok := env(key); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return def
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}
