package log

import (
	"bytes"

	"go.uber.org/zap/zaptest"
)

// testWriter 把日志逐行转发到测试输出。fail 为 true 时每次写入都标记测试失败，
// 用于承接 zap 自身的错误输出。
type testWriter struct {
	t    zaptest.TestingT
	fail bool
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", bytes.TrimSuffix(p, []byte("\n")))
	if w.fail {
		w.t.Fail()
	}
	return len(p), nil
}

func (testWriter) Sync() error { return nil }
