package user

import (
	"time"

	"gorm.io/gorm"
)

// User 定义了用户在SQLite数据库中的持久化模型。
// 记账核心只读取身份/封禁/验证状态，只写回流量汇总、积分和最后活跃时间；
// 其余字段（注册、邀请、角色等）归用户管理模块所有。
type User struct {
	ID uint `gorm:"primarykey"`

	Username string

	// Passkey 是嵌在announce URL里的用户令牌，形如
	// /tracker/<passkey>/announce。每个用户唯一。
	Passkey string `gorm:"uniqueIndex;type:varchar(36)"`

	// Banned 为true时该用户的所有announce都会被拒绝。
	Banned bool

	// EmailVerified 为false时拒绝announce，直到邮箱验证通过。
	EmailVerified bool

	// Uploaded / Downloaded 是该用户的流量汇总（字节）。
	// 每次announce后由账本重新聚合写回：ReapedUploaded/Downloaded基线
	// 加上所有现存peer会话的total之和。
	Uploaded   int64
	Downloaded int64

	// ReapedUploaded / ReapedDownloaded 是已被清扫器删除的会话记录
	// 折算进来的流量基线。会话记录被删除后其total不再参与聚合，
	// 删除前先累加到这里，保证汇总永不丢字节。
	ReapedUploaded   int64
	ReapedDownloaded int64

	// BonusPoints 是累计的上传奖励积分。
	BonusPoints int64

	// LastSeen 记录该用户上一次成功announce的时间。
	LastSeen *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
