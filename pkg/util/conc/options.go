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

package conc

import (
	ants "github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/lk2023060901/logos-convert/pkg/log"
)

type poolOption struct {
	// nonBlocking 为 true 时池满直接拒绝提交，而不是阻塞调用方。
	nonBlocking bool
	// concealPanic 为 true 时任务 panic 只记录日志并体现在 Future 的错误上。
	concealPanic bool
	// preHandler 在每个任务执行前调用。
	preHandler func()
}

// PoolOption 配置 Pool。
type PoolOption func(opt *poolOption)

func WithNonBlocking(v bool) PoolOption {
	return func(opt *poolOption) { opt.nonBlocking = v }
}

func WithConcealPanic(v bool) PoolOption {
	return func(opt *poolOption) { opt.concealPanic = v }
}

func WithPreHandler(fn func()) PoolOption {
	return func(opt *poolOption) { opt.preHandler = fn }
}

func (opt *poolOption) antsOptions() []ants.Option {
	return []ants.Option{
		ants.WithNonblocking(opt.nonBlocking),
		// ants 会 recover 任务中的 panic，这里决定是否继续向上抛出。
		ants.WithPanicHandler(func(v any) {
			log.Error("conc pool task panicked", zap.Any("panic", v))
			if !opt.concealPanic {
				panic(v)
			}
		}),
	}
}
