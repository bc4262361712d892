// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"sync"

	"github.com/uber/jaeger-client-go/utils"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// rateGroups 按名称共享限流器，同名分组的 Logger 共用一份额度。
var rateGroups sync.Map // string -> *utils.ReconfigurableRateLimiter

// MLogger 在 zap.Logger 之上增加按分组限流的日志输出。
type MLogger struct {
	*zap.Logger
	rl RateLimiter
}

// NewMLogger 包装 l，限流使用全局限流器。
func NewMLogger(l *zap.Logger) *MLogger {
	return &MLogger{Logger: l}
}

// With 返回携带 fields 的副本，限流分组保持不变。
func (l *MLogger) With(fields ...zap.Field) *MLogger {
	return &MLogger{Logger: l.Logger.With(fields...), rl: l.rl}
}

// WithRateGroup 返回绑定到 group 分组限流器的副本。
// 分组已存在时以本次参数更新其额度。
func (l *MLogger) WithRateGroup(group string, creditPerSecond, maxBalance float64) *MLogger {
	rl := utils.NewRateLimiter(creditPerSecond, maxBalance)
	if actual, loaded := rateGroups.LoadOrStore(group, rl); loaded {
		rl = actual.(*utils.ReconfigurableRateLimiter)
		rl.Update(creditPerSecond, maxBalance)
	}
	return &MLogger{Logger: l.Logger, rl: rl}
}

func (l *MLogger) limiter() RateLimiter {
	if l.rl != nil {
		return l.rl
	}
	return R()
}

// RatedInfo 在额度足够时以 Info 级别输出，返回是否输出。
func (l *MLogger) RatedInfo(cost float64, msg string, fields ...zap.Field) bool {
	if !l.limiter().CheckCredit(cost) {
		return false
	}
	l.WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
	return true
}

// RatedWarn 在额度足够时以 Warn 级别输出，返回是否输出。
func (l *MLogger) RatedWarn(cost float64, msg string, fields ...zap.Field) bool {
	if !l.limiter().CheckCredit(cost) {
		return false
	}
	l.WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
	return true
}

// Binder 嵌入到组件中，保存组件专用的 Logger。
type Binder struct {
	logger atomic.Pointer[MLogger]
}

// SetLogger 绑定 Logger，nil 表示回退到全局 Logger。
func (b *Binder) SetLogger(l *MLogger) {
	b.logger.Store(l)
}

// Logger 返回绑定的 Logger，未绑定时返回全局 Logger。
func (b *Binder) Logger() *MLogger {
	if l := b.logger.Load(); l != nil {
		return l
	}
	return NewMLogger(L())
}
