package tracker

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sqtracker/tracker-backend/internal/platform/config"
	"github.com/sqtracker/tracker-backend/internal/torrent"
	"github.com/sqtracker/tracker-backend/internal/user"
)

// announce事件的合法取值
const (
	EventNone      = ""
	EventStarted   = "started"
	EventStopped   = "stopped"
	EventCompleted = "completed"
)

// AnnounceRequest 是解析并验证通过的announce请求。
// 它只能由ParseAnnounce构造，下游组件不接受松散的参数表。
type AnnounceRequest struct {
	User    *user.User
	Torrent *torrent.Torrent

	// InfoHash / PeerID 已从20字节二进制转换为40字符十六进制。
	InfoHash string
	PeerID   string

	// Uploaded / Downloaded / Left 是客户端上报的绝对计数（字节）。
	Uploaded   int64
	Downloaded int64
	Left       int64

	Event   string
	Port    int
	NumWant int
	IP      string
}

// IntendingToDownload 报告该announce是否带有下载意图。
// 只有下载意图的announce才经过分享率/hit'n'run策略；纯做种放行。
func (r *AnnounceRequest) IntendingToDownload() bool {
	return r.Left > 0
}

// parseTrackerQuery 手工拆解announce查询串。
// info_hash和peer_id是percent转义的原始二进制，标准的表单解码
// 会把'+'还原成空格从而破坏数据，所以逐个用PathUnescape处理。
func parseTrackerQuery(rawQuery string) map[string]string {
	params := make(map[string]string)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		key, err := url.PathUnescape(kv[0])
		if err != nil {
			continue
		}
		value := ""
		if len(kv) == 2 {
			value, err = url.PathUnescape(kv[1])
			if err != nil {
				continue
			}
		}
		params[key] = value
	}
	return params
}

// hexFromBinaryParam 将20字节的二进制参数转换为十六进制。
// 空值、字面量"null"和长度不对的值都视为非法。
func hexFromBinaryParam(value string) (string, bool) {
	if value == "" || value == "null" {
		return "", false
	}
	if len(value) != 20 {
		return "", false
	}
	return hex.EncodeToString([]byte(value)), true
}

// parseNonNegative 解析一个非负整数参数。
// 缺失或无法解析时按0处理，由调用方决定是否记录异常。
func parseNonNegative(params map[string]string, key string) (int64, bool) {
	raw, exists := params[key]
	if !exists || raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ParseAnnounce 从HTTP请求中提取并验证announce参数。
// 按顺序完成：passkey提取 → 用户身份门禁 → 参数校验 → 种子查找。
// 任何一步失败都在这里终止，不会发生任何状态变更。
func ParseAnnounce(c *gin.Context) (*AnnounceRequest, *AnnounceFailure) {
	// 1. 从URL路径中提取用户令牌
	passkey := c.Param("passkey")
	if passkey == "" {
		return nil, ErrInvalidAnnounceURL
	}

	// 2. 解析用户并通过身份门禁
	u, err := user.ResolveByPasskey(passkey)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, newStorageFailure(err)
	}
	if !u.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	if u.Banned {
		return nil, ErrUserBanned
	}

	// 3. 解析查询参数
	params := parseTrackerQuery(c.Request.URL.RawQuery)
	rawInfoHash, hasInfoHash := params["info_hash"]
	rawPeerID, hasPeerID := params["peer_id"]
	if !hasInfoHash || !hasPeerID || rawInfoHash == "" || rawPeerID == "" {
		return nil, ErrMissingParams
	}

	infoHash, ok := hexFromBinaryParam(rawInfoHash)
	if !ok {
		return nil, ErrInvalidHashValues
	}
	peerID, ok := hexFromBinaryParam(rawPeerID)
	if !ok {
		return nil, ErrInvalidHashValues
	}

	event := params["event"]
	switch event {
	case EventNone, EventStarted, EventStopped, EventCompleted:
	default:
		return nil, ErrInvalidEvent
	}

	uploaded, uploadedOK := parseNonNegative(params, "uploaded")
	downloaded, downloadedOK := parseNonNegative(params, "downloaded")
	left, leftOK := parseNonNegative(params, "left")

	// started事件强制以0为会话起点，不管客户端报了什么。
	// 客户端在新会话的首次announce上报的downloaded没有参考价值。
	if event == EventStarted {
		downloaded = 0
		downloadedOK = true
	}

	// 其余数字字段缺失按0处理，但留一条软异常日志
	if !uploadedOK || !downloadedOK || !leftOK {
		fmt.Printf("announce数字参数异常，按0处理: user=%d infoHash=%s peerId=%s uploaded=%q downloaded=%q left=%q\n",
			u.ID, infoHash, peerID, params["uploaded"], params["downloaded"], params["left"])
	}

	port, _ := parseNonNegative(params, "port")
	if port > 65535 {
		port = 0
	}

	numWant, hasNumWant := parseNonNegative(params, "numwant")
	maxNumWant := int64(config.Cfg.Tracker.MaxNumWant)
	if !hasNumWant || numWant > maxNumWant {
		numWant = maxNumWant
	}

	// 4. 解析种子；tracker只服务站内索引过的种子
	t, err := torrent.ResolveByInfoHash(infoHash)
	if err != nil {
		if errors.Is(err, torrent.ErrNotFound) {
			return nil, ErrTorrentNotFound
		}
		return nil, newStorageFailure(err)
	}

	return &AnnounceRequest{
		User:       u,
		Torrent:    t,
		InfoHash:   infoHash,
		PeerID:     peerID,
		Uploaded:   uploaded,
		Downloaded: downloaded,
		Left:       left,
		Event:      event,
		Port:       int(port),
		NumWant:    int(numWant),
		IP:         c.ClientIP(),
	}, nil
}
