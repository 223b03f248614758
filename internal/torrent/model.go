package torrent

import (
	"time"

	"gorm.io/gorm"
)

// Torrent 定义了种子在SQLite数据库中的持久化模型。
// tracker只索引站内上传过的种子；记账核心读取freeleech标记，
// 并在completed事件时累加下载完成计数。
type Torrent struct {
	ID uint `gorm:"primarykey"`

	// InfoHash 是种子元数据的20字节标识，存储为40字符的十六进制。
	InfoHash string `gorm:"uniqueIndex;type:varchar(40)"`

	Name string

	// Freeleech 为true时该种子的下载量不计入分享率。
	Freeleech bool

	// IsProtected 标记密码保护的种子。受保护种子的完成数
	// 单独计入CompletedDownloads，与普通统计分开。
	IsProtected bool

	// Downloads / CompletedDownloads 是下载完成计数。
	Downloads          int64
	CompletedDownloads int64

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// ProtectedDownload 是受保护种子每次下载完成的审计记录。
type ProtectedDownload struct {
	ID uint `gorm:"primarykey"`

	TorrentInfoHash string `gorm:"index;type:varchar(40)"`
	UserID          uint
	Username        string
	TorrentName     string
	DownloadedAt    time.Time
}
