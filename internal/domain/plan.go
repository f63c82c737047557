package domain

// PairPlan 是对某个 pair 的最小执行计划（只描述目标，不做任何写入）。
type PairPlan struct {
	Pair       Pair
	OutputPath string

	// OutputExists 表示目标文件已存在（常规文件）。
	OutputExists bool
	// NeedExport 为 false 时该 pair 会被跳过。
	NeedExport bool
}
