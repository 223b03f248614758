package tracker

import (
	"github.com/sqtracker/tracker-backend/internal/platform/config"
)

// RatioUndefined 是"尚无下载量"的分享率哨兵值。
// 分母为零时分享率未定义，视为无限好，永远不触发拒绝。
const RatioUndefined float64 = -1

// EvaluatePolicy 对一次announce做策略评估。
// 只有带下载意图（left > 0）的announce才受限制；
// 纯做种的announce无条件放行，封禁做种只会伤害swarm健康。
// 返回nil表示允许，否则返回携带拒绝原因的失败。
func EvaluatePolicy(ratio float64, hitNRuns int, intendingToDownload bool, cfg *config.TrackerConfig) *AnnounceFailure {
	if !intendingToDownload {
		return nil
	}

	// 分享率低于阈值则拒绝下载；哨兵值（尚无下载量）不受此限
	if !cfg.RatioDisabled() && ratio != RatioUndefined && ratio < cfg.MinimumRatio {
		return newRatioDenial(cfg.MinimumRatio)
	}

	// hit'n'run达到上限则拒绝下载
	if !cfg.HitNRunsDisabled() && hitNRuns >= cfg.MaximumHitNRuns {
		return newHitNRunDenial(cfg.MaximumHitNRuns)
	}

	return nil
}
