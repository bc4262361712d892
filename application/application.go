package application

import (
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/lk2023060901/logos-convert/pkg/convert"
	zlog "github.com/lk2023060901/logos-convert/pkg/log"
	"github.com/lk2023060901/logos-convert/pkg/metrics"
	"github.com/lk2023060901/logos-convert/pkg/settings"
	zviper "github.com/lk2023060901/logos-convert/pkg/util/viper"
)

const (
	envConfigPath = "LOGOS_CONFIG_FILE_PATH"
	envLogPrefix  = "LOGOS_LOG_"

	defaultConfigPath = "./config.yaml"
)

// Application 是转换服务的运行时容器，持有配置、日志与设置档案。
type Application struct {
	cfg      *zviper.Config
	loggers  map[string]*zlog.MLogger
	batch    *convert.Batch
	undoProc func()
}

// New 创建 Application。
func New() *Application {
	return &Application{}
}

// Run 解析命令行参数（os.Args）并加载配置文件，路径优先级：
//  1. 默认：./config.yaml
//  2. 环境变量：LOGOS_CONFIG_FILE_PATH
//  3. 命令行：--config <path> 或 --config=<path>
func (a *Application) Run() error {
	return a.RunWithArgs(os.Args[1:])
}

// RunWithArgs 与 Run 相同，但使用给定的参数列表。
func (a *Application) RunWithArgs(args []string) error {
	cfg, err := a.loadConfig(args)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.initLogging(); err != nil {
		return err
	}

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, v ...any) {
		zlog.Info(fmt.Sprintf(format, v...))
	}))
	if err != nil {
		zlog.Warn("failed to set GOMAXPROCS", zap.Error(err))
	}
	a.undoProc = undo

	metrics.Register(prometheus.DefaultRegisterer)

	a.batch = convert.NewBatch(a.cfg.GetInt("batch.size"))
	a.batch.SetLogger(a.Logger("convert").With(zlog.FieldComponent("batch")))

	zlog.Info("application started",
		zap.Strings("profiles", a.Profiles()),
		zap.Int("loggers", len(a.loggers)))
	return nil
}

// Close 释放协程池、恢复 GOMAXPROCS 并关闭日志文件。
func (a *Application) Close() {
	if a.batch != nil {
		a.batch.Close()
	}
	if a.undoProc != nil {
		a.undoProc()
	}
	_ = zlog.Sync()
	if err := zlog.Cleanup(); err != nil {
		zlog.Warn("failed to close log files", zap.Error(err))
	}
}

// Config 返回已加载的配置。
func (a *Application) Config() *zviper.Config {
	return a.cfg
}

// Batch 返回共享的批量转换器。
func (a *Application) Batch() *convert.Batch {
	return a.batch
}

// Profiles 返回配置中定义的设置档案名。
func (a *Application) Profiles() []string {
	if a.cfg == nil {
		return nil
	}
	return settings.Profiles(a.cfg)
}

// Settings 返回名为 profile 的设置档案，档案不存在时返回 ErrInvalidSettings。
func (a *Application) Settings(profile string) (settings.Settings, error) {
	if a.cfg == nil {
		return nil, fmt.Errorf("application is not running")
	}
	return settings.FromConfig(a.cfg, profile)
}

// Logger 返回按配置创建的具名 Logger，未知名称回退到全局 Logger。
func (a *Application) Logger(name string) *zlog.MLogger {
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return zlog.NewMLogger(zlog.L())
}

// loadConfig 解析配置文件路径并通过 viper 封装加载。
func (a *Application) loadConfig(args []string) (*zviper.Config, error) {
	configPath := defaultConfigPath

	if envPath := os.Getenv(envConfigPath); envPath != "" {
		configPath = envPath
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value after --config")
			}
			configPath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			val := strings.TrimPrefix(arg, "--config=")
			if val != "" {
				configPath = val
			}
			continue
		}
	}

	cfg := zviper.New()
	if err := cfg.LoadFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file %q: %w", configPath, err)
	}

	return cfg, nil
}

// initLogging 初始化全局与模块级 Logger。
func (a *Application) initLogging() error {
	if err := a.initGlobalLoggerFromEnv(); err != nil {
		return err
	}
	if err := a.initModuleLoggersFromConfig(); err != nil {
		return err
	}
	return nil
}

// initGlobalLoggerFromEnv 根据 LOGOS_LOG_* 环境变量配置进程级 Logger。
//
//   - LOGOS_LOG_ENABLE："1"/"true" 开启输出，其余视为关闭。
//   - LOGOS_LOG_LEVEL：日志级别（默认 "info"）。
//   - LOGOS_LOG_STDOUT：是否输出到标准输出（默认 false）。
//   - LOGOS_LOG_FILE_DIR：日志目录。
//   - LOGOS_LOG_FILE：日志文件名（为空表示不写文件）。
//   - LOGOS_LOG_FORMAT：日志格式（"text" 或 "json"，默认 "text"）。
func (a *Application) initGlobalLoggerFromEnv() error {
	enabled := getenvBool(envLogPrefix+"ENABLE", false)

	cfg := &zlog.Config{
		Level:               getenvDefault(envLogPrefix+"LEVEL", "info"),
		Format:              getenvDefault(envLogPrefix+"FORMAT", "text"),
		Stdout:              getenvBool(envLogPrefix+"STDOUT", false),
		DisableErrorVerbose: true,
		File: zlog.FileLogConfig{
			RootPath: getenvDefault(envLogPrefix+"FILE_DIR", ""),
			Filename: getenvDefault(envLogPrefix+"FILE", ""),
		},
	}

	// 未开启时丢弃全部输出。
	if !enabled {
		cfg.Stdout = false
		cfg.File.Filename = ""
	}

	logger, props, err := zlog.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("init global logger from env: %w", err)
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggersFromConfig 按 "logging" 节创建具名 Logger。
//
// 示例：
//
//	logging:
//	  convert:
//	    level: debug
//	    stdout: true
//	    file:
//	      rootpath: ./logs
//	      filename: convert.log
//	    rate:
//	      credit_per_second: 1
//	      max_balance: 60
func (a *Application) initModuleLoggersFromConfig() error {
	if a.cfg == nil {
		return nil
	}

	raw := make(map[string]zlog.Config)
	if err := a.cfg.UnmarshalKey("logging", &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	a.loggers = make(map[string]*zlog.MLogger, len(raw))
	for name, lc := range raw {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return fmt.Errorf("init module logger %q: %w", name, err)
		}
		ml := zlog.NewMLogger(logger.With(zlog.FieldModule(name)))
		if rc := cfgCopy.Rate; rc != nil {
			ml = ml.WithRateGroup(name, rc.CreditPerSecond, rc.MaxBalance)
		}
		a.loggers[name] = ml
	}

	return nil
}

func getenvDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
