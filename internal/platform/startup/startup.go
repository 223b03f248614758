package startup

import (
	"fmt"

	"github.com/sqtracker/tracker-backend/internal/torrent"
	"github.com/sqtracker/tracker-backend/internal/tracker"
	"github.com/sqtracker/tracker-backend/internal/user"
)

// InitializeApplication 是应用首次启动时执行的总入口
func InitializeApplication() error {
	fmt.Println("开始应用首次初始化...")

	if err := user.PrimeDB(); err != nil {
		return err
	}
	if err := torrent.PrimeDB(); err != nil {
		return err
	}
	if err := tracker.PrimeDB(); err != nil {
		return err
	}

	fmt.Println("应用初始化完成！")
	return nil
}
