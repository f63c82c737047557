package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/bgvsplit/internal/app/run"
	"github.com/John-Robertt/bgvsplit/internal/audio"
	"github.com/John-Robertt/bgvsplit/internal/config"
	"github.com/John-Robertt/bgvsplit/internal/domain"
	"github.com/John-Robertt/bgvsplit/internal/infra/fsx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// exitError 携带非 0 退出码；err 为 nil 表示结果已经输出过，无需再打印。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

// execute 运行 CLI 并返回退出码：0 成功；1 有 pair 失败或配置/IO 错误；2 用法错误。
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "错误：%v\n", ee.err)
		}
		return ee.code
	}
	// 其余错误都来自 cobra 的参数/子命令解析。
	fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
	fmt.Fprint(stderr, root.UsageString())
	return 2
}

// globalFlags 是挂在 root 上、所有子命令共享的持久参数。
type globalFlags struct {
	logLevel string
}

func (g *globalFlags) fill(cmd *cobra.Command, cli *config.CLIArgs) {
	cli.LogLevel = g.logLevel
	cli.LogLevelSet = cmd.Flags().Changed("log-level")
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:   "bgvsplit",
		Short: "把 bare / background vocals 两条录音配对并合成为左右声道分离的立体声",
		Long: `bgvsplit 扫描目录中按约定命名的录音：

  <title>-<chord>[-with Background Vocals]-Trimmed_<N>s.<ext>

同一首歌（title、chord、裁剪时长一致）的 bare 与 bgv 两条录音会被配对，
导出为 <title>-<chord>-Trimmed_<N>s-Split.wav（bare 在左声道，bgv 在右声道）。`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "日志级别：debug|info|warn|error（环境变量 "+config.EnvLogLevel+"）")

	root.AddCommand(newRunCmd(stdout, stderr, &g))
	root.AddCommand(newOffsetCmd(stdout, stderr, &g))
	return root
}

func newRunCmd(stdout, stderr io.Writer, g *globalFlags) *cobra.Command {
	var (
		cli        config.CLIArgs
		reportPath string
	)
	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "扫描目录、配对并导出（默认 dry-run）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cli.Path = args[0]
			}
			fl := cmd.Flags()
			cli.ApplySet = fl.Changed("apply")
			cli.OverwriteSet = fl.Changed("overwrite")
			cli.RateSet = fl.Changed("rate")
			cli.MeasureOffsetSet = fl.Changed("measure-offset")
			cli.OffsetRateSet = fl.Changed("offset-rate")
			cli.FFmpegSet = fl.Changed("ffmpeg")
			g.fill(cmd, &cli)

			cwd, err := os.Getwd()
			if err != nil {
				return &exitError{code: 1, err: fmt.Errorf("读取当前目录失败：%w", err)}
			}

			eff, err := config.LoadEffective(cwd, cli, os.LookupEnv)
			if err != nil {
				emitReport(stdout, stderr, reportForConfigError(cwd, cli, err))
				return &exitError{code: 1}
			}
			setupLogger(stderr, eff.LogLevel)

			progressW, interactive := pickProgressWriter(stdout, stderr)
			var obs run.Observer
			if interactive {
				obs = newProgressUI(progressW)
			}

			rr := run.ExecuteWithObserver(cmd.Context(), eff, newCodec(eff.FFmpegBin), obs)

			if reportPath != "" {
				if err := writeReportFile(reportPath, rr); err != nil {
					emitReport(stdout, stderr, rr)
					return &exitError{code: 1, err: fmt.Errorf("写入 report 失败：%w", err)}
				}
			}

			emitReport(stdout, stderr, rr)
			if rr.Summary.Failed > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&cli.Apply, "apply", false, "执行导出（默认 dry-run）；支持 --apply=false 覆盖环境变量")
	f.BoolVar(&cli.Overwrite, "overwrite", false, "覆盖已存在的 -Split.wav")
	f.IntVar(&cli.Rate, "rate", config.DefaultSampleRate, "输出采样率")
	f.BoolVar(&cli.MeasureOffset, "measure-offset", false, "为每个 pair 估计 bgv 相对 bare 的偏移（写入 report）")
	f.IntVar(&cli.OffsetRate, "offset-rate", config.DefaultOffsetRate, "估计偏移时使用的采样率")
	f.StringVar(&cli.FFmpeg, "ffmpeg", config.DefaultFFmpeg, "ffmpeg 可执行文件（非 WAV 输入与重采样需要）")
	f.StringVar(&reportPath, "report", "", "同时把 report JSON 原子写入该文件")
	return cmd
}

func setupLogger(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// newCodec 在 ffmpeg 不可用时退化为仅原生 WAV（需要 ffmpeg 的条目会得到明确的 decode/encode 错误）。
func newCodec(bin string) *audio.Codec {
	ff := &audio.FFmpeg{Bin: bin}
	if err := ff.Available(); err != nil {
		slog.Warn("ffmpeg 不可用，只能处理采样率一致的 WAV", "ffmpeg", bin, "err", err)
		return &audio.Codec{}
	}
	return &audio.Codec{FFmpeg: ff}
}

func summaryLine(rr domain.RunReport) string {
	s := rr.Summary
	return fmt.Sprintf("完成：exported=%d planned=%d skipped=%d failed=%d unmatched=%d incomplete=%d",
		s.Exported, s.Planned, s.Skipped, s.Failed, s.Unmatched, s.Incomplete,
	)
}

func emitReport(stdout, stderr io.Writer, rr domain.RunReport) {
	if isTTY(stdout) {
		fmt.Fprintln(stdout, summaryLine(rr))
		for _, it := range rr.Items {
			if it.Status != domain.StatusFailed && it.Status != domain.StatusUnmatched && it.Status != domain.StatusIncomplete {
				continue
			}
			key := it.Key
			if key == "" && len(it.Files) > 0 {
				// unmatched/config 等合成条目：用首个输入文件做定位锚点。
				key = it.Files[0].Src
			}
			if key == "" {
				key = "<unknown>"
			}
			fmt.Fprintf(stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(stdout)
	_ = enc.Encode(rr)
	fmt.Fprintln(stderr, summaryLine(rr))
}

func reportForConfigError(cwd string, cli config.CLIArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	path := cwd
	if cli.Path != "" {
		path = cli.Path
	}
	rr := domain.RunReport{
		Path:       path,
		DryRun:     !(cli.ApplySet && cli.Apply),
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: config.Code(err),
			ErrorMsg:  err.Error(),
			Files:     []domain.FileResult{},
		}},
	}
	rr.Finalize()
	return rr
}

func writeReportFile(path string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(filepath.Dir(abs), filepath.Base(abs), b)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter(stdout, stderr io.Writer) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(stderr) {
		return stderr, true
	}
	if isTTY(stdout) {
		return stdout, true
	}
	return nil, false
}
