package domain

const (
	UnmatchedNoMatch         = "no_match"
	UnmatchedHidden          = "hidden"
	UnmatchedBGVFlagMismatch = "bgv_flag_mismatch"
)

// Unmatched 描述无法解析成 Take 的输入文件。
// 用于 report 的 unmatched 条目。
type Unmatched struct {
	File   AudioFile
	Kind   string // no_match | hidden | bgv_flag_mismatch
	Reason string
}

const (
	IncompleteOrphan    = "orphan"    // 只有 1 条
	IncompleteDuplicate = "duplicate" // >= 3 条
	IncompleteSameFlag  = "same_flag" // 2 条但同为 bare 或同为 bgv
)

// IncompleteGroup 描述没有凑成 pair 的分组（按约定丢弃，但会在 report 中列出）。
type IncompleteGroup struct {
	Key   GroupKey
	Kind  string
	Takes []Take // 扫描顺序
}
