package hardware

import (
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"

	"github.com/lk2023060901/logos-convert/pkg/log"
)

var (
	cpuNumOnce sync.Once
	cpuNum     int
)

// GetCPUNum 返回当前进程可用的逻辑 CPU 数。
//
// 优先使用 gopsutil 读取主机逻辑核数，并与 GOMAXPROCS 取较小值，
// 使容器内（automaxprocs 已调整 GOMAXPROCS）不会超额申请并发。
func GetCPUNum() int {
	cpuNumOnce.Do(func() {
		cpuNum = runtime.GOMAXPROCS(0)
		counts, err := cpu.Counts(true)
		if err != nil {
			log.Warn("failed to get cpu counts, fallback to GOMAXPROCS", zap.Error(err))
			return
		}
		if counts > 0 && counts < cpuNum {
			cpuNum = counts
		}
	})
	return cpuNum
}
