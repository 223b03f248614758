package tracker

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sqtracker/tracker-backend/internal/platform/config"
)

// bencodeContentType 其实无关紧要，BT客户端按内容解析响应
const bencodeContentType = "text/plain"

// HandleAnnounce 处理 GET /tracker/:passkey/announce
//
// 处理链：解析验证 → 策略门禁 → 账本入账 → swarm维护 → bencode响应。
// 所有失败路径都返回HTTP 200加bencode的failure reason，
// 这是HTTP tracker的惯例，客户端不看HTTP状态码。
func HandleAnnounce(c *gin.Context) {
	now := time.Now()

	// 1. 解析并验证请求，身份门禁在这一步完成
	req, fail := ParseAnnounce(c)
	if fail != nil {
		respondFailure(c, fail, nil)
		return
	}

	// 2. 取分享率和hit'n'run计数，评估下载策略。
	// 策略拒绝时账本不动：拒绝的是继续下载，不是已有的账
	totals, err := GetUserTotals(req.User.ID)
	if err != nil {
		respondFailure(c, newStorageFailure(err), req)
		return
	}
	hitNRuns, err := GetHitNRunCount(req.User.ID, now)
	if err != nil {
		respondFailure(c, newStorageFailure(err), req)
		return
	}
	if fail := EvaluatePolicy(totals.Ratio, hitNRuns, req.IntendingToDownload(), &config.Cfg.Tracker); fail != nil {
		respondFailure(c, fail, req)
		return
	}

	// 3. 账本入账，整个状态机在一个事务里
	if _, fail := ApplyAnnounce(req, now); fail != nil {
		respondFailure(c, fail, req)
		return
	}

	// 4. 维护swarm成员。Redis故障不回滚已入账的流量，
	// 只降级为空peer列表，客户端下个周期会重试
	if err := UpdateSwarm(req, now); err != nil {
		logAnnounceError(req, fmt.Errorf("维护swarm失败: %w", err))
	}
	peers, peers6, complete, incomplete, err := SwarmSnapshot(req.InfoHash, req.PeerID, req.NumWant, now)
	if err != nil {
		logAnnounceError(req, err)
		peers, peers6, complete, incomplete = nil, nil, 0, 0
	}

	// 5. 组装响应
	payload, err := buildSuccessResponse(complete, incomplete, peers, peers6)
	if err != nil {
		logAnnounceError(req, fmt.Errorf("编码响应失败: %w", err))
		respondFailure(c, newStorageFailure(err), req)
		return
	}
	c.Data(http.StatusOK, bencodeContentType, payload)
}

// respondFailure 输出bencode失败响应。
// 身份和策略类失败是日常流量不落日志；存储/内部失败带上下文记录。
func respondFailure(c *gin.Context, f *AnnounceFailure, req *AnnounceRequest) {
	if f.Kind == KindStorage || f.Kind == KindInternal {
		logAnnounceError(req, f.Err)
	}
	c.Data(http.StatusOK, bencodeContentType, buildFailureResponse(f))
}

// logAnnounceError 记录一次announce处理中的服务端错误，带足排查上下文。
func logAnnounceError(req *AnnounceRequest, err error) {
	if req == nil {
		fmt.Printf("announce处理错误: %v\n", err)
		return
	}
	fmt.Printf("announce处理错误: user=%d infoHash=%s peerId=%s event=%q err=%v\n",
		req.User.ID, req.InfoHash, req.PeerID, req.Event, err)
}
