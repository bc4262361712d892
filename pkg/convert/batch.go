package convert

import (
	"context"

	"go.uber.org/zap"

	"github.com/lk2023060901/logos-convert/pkg/binfmt"
	"github.com/lk2023060901/logos-convert/pkg/log"
	"github.com/lk2023060901/logos-convert/pkg/metrics"
	"github.com/lk2023060901/logos-convert/pkg/settings"
	"github.com/lk2023060901/logos-convert/pkg/util/conc"
)

const batchModule = "convert.batch"

// Batch 在有界协程池上并行转换互不相关的对象。
//
// 结果顺序与输入一致；任一元素失败时返回下标最小的错误，且不返回部分结果。
// 调用方需保证转换期间输入不被并发修改。
type Batch struct {
	log.Binder

	pool *conc.Pool[any]
}

// NewBatch 创建容量为 size 的 Batch，size <= 0 时使用 CPU 核数。
// 转换中的 panic 默认转为该元素的错误，可用 conc.WithConcealPanic(false) 关闭。
func NewBatch(size int, opts ...conc.PoolOption) *Batch {
	opts = append([]conc.PoolOption{conc.WithConcealPanic(true)}, opts...)
	var pool *conc.Pool[any]
	if size <= 0 {
		pool = conc.NewDefaultPool[any](opts...)
	} else {
		pool = conc.NewPool[any](size, opts...)
	}
	return &Batch{pool: pool}
}

// Close 释放协程池。
func (b *Batch) Close() {
	b.pool.Release()
}

// run 并行执行 n 个任务并按下标收集结果。
func (b *Batch) run(ctx context.Context, op string, n int, task func(ctx context.Context, i int) (any, error)) ([]any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = log.WithModule(ctx, batchModule)
	futures := make([]*conc.Future[any], n)
	for i := 0; i < n; i++ {
		i := i
		// 提交被拒绝时任务不会执行，计数只在任务内部增减。
		futures[i] = b.pool.Submit(func() (any, error) {
			metrics.BatchInflight.Inc()
			defer metrics.BatchInflight.Dec()
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return task(ctx, i)
		})
	}

	results := make([]any, n)
	var firstErr error
	failed := -1
	for i, f := range futures {
		v, err := f.Await()
		if err != nil {
			if firstErr == nil {
				firstErr, failed = err, i
			}
			continue
		}
		results[i] = v
	}
	if firstErr != nil {
		b.Logger().Warn("batch conversion failed",
			log.FieldOp(op), zap.Int("index", failed), zap.Int("total", n), zap.Error(firstErr))
		return nil, firstErr
	}
	return results, nil
}

// EncodeAll 并行序列化 items。
func EncodeAll[V Serializable](ctx context.Context, b *Batch, items []V, s settings.Settings) ([]*binfmt.Container, error) {
	results, err := b.run(ctx, metrics.OpSerialize, len(items), func(ctx context.Context, i int) (any, error) {
		return Encode(ctx, items[i], s)
	})
	if err != nil {
		return nil, err
	}
	out := make([]*binfmt.Container, len(results))
	for i, r := range results {
		out[i] = r.(*binfmt.Container)
	}
	return out, nil
}

// DecodeAll 并行反序列化 srcs。
func DecodeAll[T any](ctx context.Context, b *Batch, f Factory[T], srcs []*binfmt.Container, s settings.Settings) ([]T, error) {
	results, err := b.run(ctx, metrics.OpDeserialize, len(srcs), func(ctx context.Context, i int) (any, error) {
		return Decode(ctx, f, srcs[i], s)
	})
	if err != nil {
		return nil, err
	}
	out := make([]T, len(results))
	for i, r := range results {
		out[i] = r.(T)
	}
	return out, nil
}

// EncodeJSONAll 并行生成 JSON 文本。
func EncodeJSONAll[V Serializable](ctx context.Context, b *Batch, items []V, s settings.Settings) ([]string, error) {
	results, err := b.run(ctx, metrics.OpToJSON, len(items), func(ctx context.Context, i int) (any, error) {
		return EncodeJSON(ctx, items[i], s)
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.(string)
	}
	return out, nil
}

// DecodeJSONAll 并行解析 JSON 文本。
func DecodeJSONAll[T any](ctx context.Context, b *Batch, f Factory[T], texts []string, s settings.Settings) ([]T, error) {
	results, err := b.run(ctx, metrics.OpFromJSON, len(texts), func(ctx context.Context, i int) (any, error) {
		return DecodeJSON(ctx, f, texts[i], s)
	})
	if err != nil {
		return nil, err
	}
	out := make([]T, len(results))
	for i, r := range results {
		out[i] = r.(T)
	}
	return out, nil
}
