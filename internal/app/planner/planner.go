package planner

import (
	"fmt"

	"github.com/John-Robertt/bgvsplit/internal/domain"
	"github.com/John-Robertt/bgvsplit/internal/infra/fsx"
)

// PlanPair 基于 pair 与目标路径现状生成确定性的执行计划（只做 Lstat，不做任何写入）。
//
// - 目标不存在：需要导出
// - 目标是常规文件：overwrite=true 时重新导出，否则跳过
// - 目标是目录等非常规文件：*fsx.PathTypeConflictError
func PlanPair(p domain.Pair, overwrite bool) (domain.PairPlan, error) {
	out := p.OutputPath()
	exists, err := fsx.StatTarget(out)
	if err != nil {
		return domain.PairPlan{}, err
	}
	return domain.PairPlan{
		Pair:         p,
		OutputPath:   out,
		OutputExists: exists,
		NeedExport:   !exists || overwrite,
	}, nil
}

// PlanPairs 按输入顺序为每个 pair 生成计划。
//
// 单个 pair 的规划失败不会中断其余 pair：errs[i] 非空时 plans[i] 只有 Pair 字段有效。
func PlanPairs(pairs []domain.Pair, overwrite bool) (plans []domain.PairPlan, errs []error) {
	plans = make([]domain.PairPlan, len(pairs))
	errs = make([]error, len(pairs))
	seen := make(map[string]int, len(pairs))

	for i, p := range pairs {
		plan, err := PlanPair(p, overwrite)
		if err != nil {
			plans[i] = domain.PairPlan{Pair: p, OutputPath: p.OutputPath()}
			errs[i] = err
			continue
		}
		// 分组键唯一时输出名也唯一；这里只是兜住调用方传入重复 pair 的情况。
		if j, ok := seen[plan.OutputPath]; ok {
			plans[i] = plan
			plans[i].NeedExport = false
			errs[i] = fmt.Errorf("输出路径与第 %d 个 pair 重复：%q", j+1, plan.OutputPath)
			continue
		}
		seen[plan.OutputPath] = i
		plans[i] = plan
	}
	return plans, errs
}
