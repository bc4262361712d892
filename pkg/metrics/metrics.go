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

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// logosNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	logosNamespace = "logos"

	convertSubsystem = "convert"

	// 以下为当前使用的通用标签名。
	opLabelName     = "op"
	typeLabelName   = "type"
	resultLabelName = "result"

	SuccessLabel = "success"
	FailLabel    = "fail"

	// 转换操作名。
	OpSerialize   = "serialize"
	OpDeserialize = "deserialize"
	OpToJSON      = "to_json"
	OpFromJSON    = "from_json"
)

var (
	// buckets 为耗时直方图的桶划分，单位为毫秒。
	// 实际桶分布为：[0.01 0.02 0.04 ... 327.68]
	buckets = prometheus.ExponentialBuckets(0.01, 2, 16)

	// sizeBuckets 为数据大小的桶划分，单位为字节。
	// 实际桶分布为：[64 256 1024 ... 16777216]
	sizeBuckets = prometheus.ExponentialBuckets(64, 4, 10)

	ConvertOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: logosNamespace,
			Subsystem: convertSubsystem,
			Name:      "operations_total",
			Help:      "number of conversion calls",
		}, []string{opLabelName, typeLabelName, resultLabelName})

	ConvertPayloadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: logosNamespace,
			Subsystem: convertSubsystem,
			Name:      "payload_bytes",
			Help:      "size of produced or consumed binary payloads and JSON texts",
			Buckets:   sizeBuckets,
		}, []string{opLabelName, typeLabelName})

	ConvertLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: logosNamespace,
			Subsystem: convertSubsystem,
			Name:      "latency_milliseconds",
			Help:      "latency of conversion calls",
			Buckets:   buckets,
		}, []string{opLabelName, typeLabelName})

	BatchInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: logosNamespace,
			Subsystem: convertSubsystem,
			Name:      "batch_inflight",
			Help:      "number of batch conversion tasks currently running",
		})

	registerOnce     sync.Once
	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标，重复调用只生效一次。
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(ConvertOperations)
		r.MustRegister(ConvertPayloadBytes)
		r.MustRegister(ConvertLatency)
		r.MustRegister(BatchInflight)
		metricRegisterer = r
	})
}

// Result 将错误映射为结果标签。
func Result(err error) string {
	if err != nil {
		return FailLabel
	}
	return SuccessLabel
}
