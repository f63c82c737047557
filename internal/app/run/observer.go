package run

import (
	"time"

	"github.com/John-Robertt/bgvsplit/internal/config"
	"github.com/John-Robertt/bgvsplit/internal/domain"
)

// Observer 用于把"运行进度/阶段/条目结果"从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 事件全部来自调用 ExecuteWithObserver 的 goroutine，按发生顺序串行到达。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束/就绪时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemDone 在某个 pair 处理完成时调用。
	OnItemDone(idx, total int, key string, res domain.ItemResult, dur time.Duration)
	// OnFinish 在 report 定稿后调用（之后不会再有事件）。
	OnFinish(rr domain.RunReport)
}
