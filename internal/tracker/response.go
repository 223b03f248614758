package tracker

import (
	"fmt"

	"github.com/sqtracker/tracker-backend/internal/platform/config"
	"github.com/sqtracker/tracker-backend/pkg/bencode"
)

// buildSuccessResponse 组装成功announce的bencode字典。
// interval / min interval 是tracker固定注入的常量，客户端不可配置。
func buildSuccessResponse(complete, incomplete int, peers, peers6 []byte) ([]byte, error) {
	cfg := &config.Cfg.Tracker
	return bencode.Encode(map[string]interface{}{
		"interval":     cfg.AnnounceInterval,
		"min interval": cfg.MinInterval,
		"complete":     complete,
		"incomplete":   incomplete,
		"peers":        string(peers),
		"peers6":       string(peers6),
	})
}

// buildFailureResponse 组装失败announce的bencode字典。
// 策略类拒绝额外带上空的peer列表，客户端收到后会停止联系其他peer。
// 这个函数不允许失败：编码器出错时退回手写的bencode字符串，
// 保证每一条处理路径都能给客户端一个合法的bencode响应。
func buildFailureResponse(f *AnnounceFailure) []byte {
	dict := map[string]interface{}{
		"failure reason": f.Reason,
	}
	if f.Kind == KindPolicy {
		dict["peers"] = []interface{}{}
		dict["peers6"] = []interface{}{}
	}

	out, err := bencode.Encode(dict)
	if err != nil {
		return rawFailure(f.Reason)
	}
	return out
}

// rawFailure 手工拼出最简失败字典，是编码器不可用时的最后防线。
func rawFailure(reason string) []byte {
	return []byte(fmt.Sprintf("d14:failure reason%d:%se", len(reason), reason))
}
