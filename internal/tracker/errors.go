package tracker

import "fmt"

// FailureKind 对announce失败做分类，决定日志和响应的处理方式。
// 身份/策略类失败是日常流量，不记为错误日志；
// 存储和内部失败需要带上下文记录，供排查。
type FailureKind int

const (
	KindMalformed FailureKind = iota
	KindIdentity
	KindUnknownTorrent
	KindPolicy
	KindStorage
	KindInternal
)

// AnnounceFailure 是announce处理链上所有失败的统一载体。
// Reason 会被原样放进bencode响应的 "failure reason" 字段，
// 所以必须是面向BT客户端的完整句子。
type AnnounceFailure struct {
	Kind   FailureKind
	Reason string
	Err    error
}

func (f *AnnounceFailure) Error() string {
	return f.Reason
}

func (f *AnnounceFailure) Unwrap() error {
	return f.Err
}

// 固定失败原因，措辞与站点前端提示保持一致
var (
	ErrInvalidAnnounceURL = &AnnounceFailure{Kind: KindMalformed, Reason: "Invalid announce URL format"}
	ErrNotRegistered      = &AnnounceFailure{Kind: KindIdentity, Reason: "Announce denied: you are not registered."}
	ErrEmailNotVerified   = &AnnounceFailure{Kind: KindIdentity, Reason: "Announce denied: email address must be verified."}
	ErrUserBanned         = &AnnounceFailure{Kind: KindIdentity, Reason: "Announce denied: your account has been banned."}
	ErrMissingParams      = &AnnounceFailure{Kind: KindMalformed, Reason: "Missing required announce parameters"}
	ErrInvalidHashValues  = &AnnounceFailure{Kind: KindMalformed, Reason: "Invalid info_hash or peer_id values"}
	ErrInvalidEvent       = &AnnounceFailure{Kind: KindMalformed, Reason: "Invalid announce event"}
	ErrTorrentNotFound    = &AnnounceFailure{Kind: KindUnknownTorrent, Reason: "Announce denied: cannot announce a torrent that has not been uploaded."}
)

// newStorageFailure 包装一个存储层错误。
// 客户端看到的是统一的暂时性提示，细节只进服务端日志。
func newStorageFailure(err error) *AnnounceFailure {
	return &AnnounceFailure{
		Kind:   KindStorage,
		Reason: "Tracker temporarily unavailable, please retry on next announce",
		Err:    err,
	}
}

// newRatioDenial 构造低于最低分享率的拒绝，原因中带上阈值。
func newRatioDenial(minimumRatio float64) *AnnounceFailure {
	return &AnnounceFailure{
		Kind:   KindPolicy,
		Reason: fmt.Sprintf("Announce denied: Ratio is below minimum threshold %g.", minimumRatio),
	}
}

// newHitNRunDenial 构造hit'n'run超限的拒绝，原因中带上阈值。
func newHitNRunDenial(maximumHitNRuns int) *AnnounceFailure {
	return &AnnounceFailure{
		Kind:   KindPolicy,
		Reason: fmt.Sprintf("Announce denied: You have committed %d or more hit'n'runs.", maximumHitNRuns),
	}
}
