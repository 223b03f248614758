package tracker

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/sqtracker/tracker-backend/internal/platform/database"
)

// --- Redis 键名常量 ---

const (
	// SwarmKeyPrefix 是swarm成员Hash的键前缀。
	// Key: tracker:swarm:<infoHash>
	// Field: peer的十六进制peer_id
	// Value: swarmPeer 结构体的JSON序列化字符串
	SwarmKeyPrefix = "tracker:swarm:"
)

// swarmStaleAfter 是swarm成员的存活窗口。
// announce间隔30秒，这里容许客户端漏报多次再从peer列表里消失；
// 账本里的会话记录有自己独立的、长得多的保留窗口。
const swarmStaleAfter = 10 * time.Minute

// swarmPeer 定义了在Redis的swarm哈希表中以JSON格式存储的peer信息。
type swarmPeer struct {
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Left     int64  `json:"left"`
	LastSeen int64  `json:"last_seen"`
}

func swarmKey(infoHash string) string {
	return SwarmKeyPrefix + infoHash
}

// packPeer 将一个peer打包为BEP 23的compact形式：
// IPv4为4字节地址+2字节大端端口，IPv6为16字节地址+2字节大端端口。
// 无法解析的地址返回(nil, false)。
func packPeer(ipStr string, port int) (packed []byte, isV6 bool, ok bool) {
	ip := net.ParseIP(ipStr)
	if ip == nil || port <= 0 || port > 65535 {
		return nil, false, false
	}

	var portBytes [2]byte
	binary.BigEndian.PutUint16(portBytes[:], uint16(port))

	if v4 := ip.To4(); v4 != nil {
		out := make([]byte, 0, 6)
		out = append(out, v4...)
		out = append(out, portBytes[:]...)
		return out, false, true
	}

	out := make([]byte, 0, 18)
	out = append(out, ip.To16()...)
	out = append(out, portBytes[:]...)
	return out, true, true
}

// UpdateSwarm 在announce成功入账后维护swarm成员。
// stopped事件移除该peer；端口缺失的peer无法被联系，不加入swarm；
// 其余情况写入/刷新该peer的地址信息。
func UpdateSwarm(req *AnnounceRequest, now time.Time) error {
	key := swarmKey(req.InfoHash)

	if req.Event == EventStopped {
		return database.RDB.HDel(database.Ctx, key, req.PeerID).Err()
	}
	if req.Port == 0 {
		return nil
	}

	entry := swarmPeer{
		IP:       req.IP,
		Port:     req.Port,
		Left:     req.Left,
		LastSeen: now.Unix(),
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("序列化swarm成员失败: %w", err)
	}
	return database.RDB.HSet(database.Ctx, key, req.PeerID, string(payload)).Err()
}

// SwarmSnapshot 读取一个种子的swarm并组装compact peer列表。
// 排除请求者自己，跳过过期成员，数量以numWant为上限。
// 返回peers（IPv4紧凑串）、peers6（IPv6紧凑串）和做种/下载人数。
func SwarmSnapshot(infoHash, excludePeerID string, numWant int, now time.Time) (peers, peers6 []byte, complete, incomplete int, err error) {
	members, err := database.RDB.HGetAll(database.Ctx, swarmKey(infoHash)).Result()
	if err != nil {
		return nil, nil, 0, 0, fmt.Errorf("读取swarm失败: %w", err)
	}

	staleBefore := now.Add(-swarmStaleAfter).Unix()
	returned := 0

	for peerID, raw := range members {
		var entry swarmPeer
		if json.Unmarshal([]byte(raw), &entry) != nil {
			continue
		}
		if entry.LastSeen < staleBefore {
			continue
		}

		if entry.Left == 0 {
			complete++
		} else {
			incomplete++
		}

		if peerID == excludePeerID || returned >= numWant {
			continue
		}
		packed, isV6, ok := packPeer(entry.IP, entry.Port)
		if !ok {
			continue
		}
		if isV6 {
			peers6 = append(peers6, packed...)
		} else {
			peers = append(peers, packed...)
		}
		returned++
	}

	return peers, peers6, complete, incomplete, nil
}

// TrimSwarm 清理所有种子swarm里的过期成员，由清扫器周期性调用。
// 过期成员只是不再出现在peer列表里，这里把字段真正删掉以免Hash膨胀。
func TrimSwarm(now time.Time) error {
	staleBefore := now.Add(-swarmStaleAfter).Unix()

	iter := database.RDB.Scan(database.Ctx, 0, SwarmKeyPrefix+"*", 100).Iterator()
	for iter.Next(database.Ctx) {
		key := iter.Val()
		members, err := database.RDB.HGetAll(database.Ctx, key).Result()
		if err != nil {
			return fmt.Errorf("读取swarm失败: %w", err)
		}

		var stale []string
		for peerID, raw := range members {
			var entry swarmPeer
			if json.Unmarshal([]byte(raw), &entry) != nil || entry.LastSeen < staleBefore {
				stale = append(stale, peerID)
			}
		}
		if len(stale) > 0 {
			if err := database.RDB.HDel(database.Ctx, key, stale...).Err(); err != nil {
				return fmt.Errorf("清理swarm成员失败: %w", err)
			}
		}
	}
	return iter.Err()
}
