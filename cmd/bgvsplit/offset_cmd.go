package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/bgvsplit/internal/audio"
	"github.com/John-Robertt/bgvsplit/internal/config"
	"github.com/John-Robertt/bgvsplit/internal/domain"
	"github.com/John-Robertt/bgvsplit/internal/offset"
)

// offsetResult 是 offset 子命令在 stdout 上输出的 JSON。
type offsetResult struct {
	Reference     string   `json:"reference"`
	Other         string   `json:"other"`
	SampleRate    int      `json:"sample_rate"`
	OffsetSeconds *float64 `json:"offset_seconds,omitempty"`
	LagSamples    *int     `json:"lag_samples,omitempty"`
	ErrorCode     string   `json:"error_code,omitempty"`
	ErrorMsg      string   `json:"error_msg,omitempty"`
}

func newOffsetCmd(stdout, stderr io.Writer, g *globalFlags) *cobra.Command {
	var (
		cli     config.CLIArgs
		asJSON  bool
		rateArg int
	)
	cmd := &cobra.Command{
		Use:   "offset <reference> <other>",
		Short: "用互相关估计 other 相对 reference 的时间偏移（秒，正数表示延迟）",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fl := cmd.Flags()
			cli.OffsetRate, cli.OffsetRateSet = rateArg, fl.Changed("rate")
			cli.FFmpegSet = fl.Changed("ffmpeg")
			g.fill(cmd, &cli)

			cwd, err := os.Getwd()
			if err != nil {
				return &exitError{code: 1, err: fmt.Errorf("读取当前目录失败：%w", err)}
			}
			eff, err := config.LoadEffective(cwd, cli, os.LookupEnv)
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			setupLogger(stderr, eff.LogLevel)

			res := offsetResult{Reference: args[0], Other: args[1], SampleRate: eff.OffsetRate}
			sec, err := offset.AudioOffset(cmd.Context(), newCodec(eff.FFmpegBin), args[0], args[1], eff.OffsetRate)
			if err != nil {
				res.ErrorCode = offsetErrorCode(err)
				res.ErrorMsg = err.Error()
			} else {
				lag := int(math.Round(sec * float64(eff.OffsetRate)))
				res.OffsetSeconds, res.LagSamples = &sec, &lag
			}

			emitOffset(stdout, stderr, res, asJSON)
			if err != nil {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&rateArg, "rate", offset.DefaultSampleRate, "统一重采样到的采样率")
	f.StringVar(&cli.FFmpeg, "ffmpeg", config.DefaultFFmpeg, "ffmpeg 可执行文件")
	f.BoolVar(&asJSON, "json", false, "即使 stdout 是终端也输出 JSON")
	return cmd
}

func offsetErrorCode(err error) string {
	var ce *audio.CodecError
	switch {
	case offset.IsDegenerateSignal(err):
		return domain.ErrCodeDegenerate
	case errors.As(err, &ce):
		return domain.ErrCodeDecodeFailed
	default:
		return domain.ErrCodeIOFailed
	}
}

func emitOffset(stdout, stderr io.Writer, res offsetResult, asJSON bool) {
	if asJSON || !isTTY(stdout) {
		_ = json.NewEncoder(stdout).Encode(res)
		if res.ErrorCode != "" {
			fmt.Fprintf(stderr, "%s: %s\n", res.ErrorCode, res.ErrorMsg)
		}
		return
	}

	if res.ErrorCode != "" {
		fmt.Fprintf(stderr, "%s: %s\n", res.ErrorCode, res.ErrorMsg)
		return
	}
	sec, lag := *res.OffsetSeconds, *res.LagSamples
	switch {
	case lag > 0:
		fmt.Fprintf(stdout, "offset: %+.6fs (%d samples @ %d Hz，other 比 reference 延迟)\n", sec, lag, res.SampleRate)
	case lag < 0:
		fmt.Fprintf(stdout, "offset: %+.6fs (%d samples @ %d Hz，other 比 reference 提前)\n", sec, lag, res.SampleRate)
	default:
		fmt.Fprintf(stdout, "offset: 0s（已对齐）\n")
	}
}
