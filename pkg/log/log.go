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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cast"
	"github.com/uber/jaeger-client-go/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	envRateEnable  = "LOGOS_LOG_RATE_ENABLE"
	envRateCredit  = "LOGOS_LOG_RATE_CREDIT_PER_SECOND"
	envRateBalance = "LOGOS_LOG_RATE_MAX_BALANCE"
)

// global 是进程级 Logger 及其属性，整体替换。
// outer 多跳过一层调用栈，供包级 Info/Warn 等函数使用。
type global struct {
	logger *zap.Logger
	outer  *zap.Logger
	props  *ZapProperties
}

var (
	current atomic.Pointer[global]
	limiter atomic.Value // RateLimiter

	// files 记录已打开的滚动日志文件，由 Cleanup 统一关闭。
	filesMu sync.Mutex
	files   []*lumberjack.Logger
)

// RateLimiter 是限流日志使用的额度检查接口。
type RateLimiter interface {
	CheckCredit(cost float64) bool
}

type nopRateLimiter struct{}

func (nopRateLimiter) CheckCredit(float64) bool { return true }

func init() {
	lg, props, _ := InitLogger(&Config{Level: "info", Stdout: true, DisableErrorVerbose: true})
	ReplaceGlobals(lg, props)
	limiter.Store(rateLimiterFromEnv())
}

// InitLogger 按 cfg 创建 Logger，输出到标准输出和/或滚动文件。
// 两者都未配置时日志被丢弃。
func InitLogger(cfg *Config, opts ...zap.Option) (*zap.Logger, *ZapProperties, error) {
	var outputs []zapcore.WriteSyncer
	if cfg.File.Filename != "" {
		lj, err := initFileLog(&cfg.File)
		if err != nil {
			return nil, nil, err
		}
		filesMu.Lock()
		files = append(files, lj)
		filesMu.Unlock()
		outputs = append(outputs, zapcore.AddSync(lj))
	}
	if cfg.Stdout {
		stdout, _, err := zap.Open("stdout")
		if err != nil {
			return nil, nil, err
		}
		outputs = append(outputs, stdout)
	}
	return InitLoggerWithWriteSyncer(cfg, zap.CombineWriteSyncers(outputs...), opts...)
}

// InitTestLogger 创建写入 t 的 Logger，zap 内部错误会使测试失败。
func InitTestLogger(t zaptest.TestingT, cfg *Config, opts ...zap.Option) (*zap.Logger, *ZapProperties, error) {
	out := testWriter{t: t}
	opts = append([]zap.Option{zap.ErrorOutput(testWriter{t: t, fail: true})}, opts...)
	return InitLoggerWithWriteSyncer(cfg, out, opts...)
}

// InitLoggerWithWriteSyncer 创建写入 output 的 Logger。
// 级别 "trace" 视同 "debug"。
func InitLoggerWithWriteSyncer(cfg *Config, output zapcore.WriteSyncer, opts ...zap.Option) (*zap.Logger, *ZapProperties, error) {
	name := cfg.Level
	if strings.EqualFold(name, "trace") {
		name = "debug"
	}
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	enc, err := newZapEncoder(cfg)
	if err != nil {
		return nil, nil, err
	}
	core := zapcore.NewCore(enc, output, level)
	lg := zap.New(core, append(cfg.buildOptions(output), opts...)...)
	return lg, &ZapProperties{Core: core, Syncer: output, Level: level}, nil
}

func initFileLog(cfg *FileLogConfig) (*lumberjack.Logger, error) {
	path := filepath.Join(cfg.RootPath, cfg.Filename)
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		return nil, errors.Newf("log file %s is a directory", path)
	}
	maxSize := cfg.MaxSize
	if maxSize == 0 {
		maxSize = defaultLogMaxSize
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxDays,
		LocalTime:  true,
	}, nil
}

// L 返回全局 Logger，可通过 ReplaceGlobals 替换，并发安全。
func L() *zap.Logger {
	return current.Load().logger
}

// Level 返回全局 Logger 的动态级别。
func Level() zap.AtomicLevel {
	return current.Load().props.Level
}

// ReplaceGlobals 替换全局 Logger。
func ReplaceGlobals(logger *zap.Logger, props *ZapProperties) {
	current.Store(&global{
		logger: logger,
		outer:  logger.WithOptions(zap.AddCallerSkip(1)),
		props:  props,
	})
}

// R 返回全局限流器，未开启限流时从不丢弃日志。
func R() RateLimiter {
	if rl, ok := limiter.Load().(RateLimiter); ok && rl != nil {
		return rl
	}
	return nopRateLimiter{}
}

// Sync 刷新全局 Logger 的缓冲。
func Sync() error {
	return L().Sync()
}

// Cleanup 关闭 InitLogger 打开的全部日志文件。
func Cleanup() error {
	filesMu.Lock()
	opened := files
	files = nil
	filesMu.Unlock()

	var errs error
	for _, f := range opened {
		errs = errors.CombineErrors(errs, f.Close())
	}
	return errs
}

// rateLimiterFromEnv 按 LOGOS_LOG_RATE_* 环境变量创建全局限流器，默认关闭。
//
//   - LOGOS_LOG_RATE_ENABLE：开启限流。
//   - LOGOS_LOG_RATE_CREDIT_PER_SECOND：每秒恢复的额度，默认 1。
//   - LOGOS_LOG_RATE_MAX_BALANCE：额度上限，默认 60。
func rateLimiterFromEnv() RateLimiter {
	if !envOr(envRateEnable, false, cast.ToBoolE) {
		return nopRateLimiter{}
	}
	return utils.NewRateLimiter(
		envOr(envRateCredit, 1.0, cast.ToFloat64E),
		envOr(envRateBalance, 60.0, cast.ToFloat64E),
	)
}

// envOr 读取并转换环境变量，为空或无法转换时返回 def。
func envOr[T any](key string, def T, conv func(any) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := conv(raw)
	if err != nil {
		return def
	}
	return v
}
