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


package merr

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

const (
	CanceledCode int32 = 10000
	TimeoutCode  int32 = 10001
)

// Kind 是转换错误的分类，调用方据此决定如何处理失败（例如换一组 settings 重试）。
type Kind int32

const (
	KindUnknown Kind = iota
	KindInvalidSettings
	KindEncoding
	KindCorruptData
	KindParse
	KindVersionMismatch
	KindSchemaMismatch
	KindInvalidParameter
	KindPermissionDenied
)

var kindName = map[Kind]string{
	KindUnknown:          "unknown",
	KindInvalidSettings:  "invalid_settings",
	KindEncoding:         "encoding_error",
	KindCorruptData:      "corrupt_data",
	KindParse:            "parse_error",
	KindVersionMismatch:  "version_mismatch",
	KindSchemaMismatch:   "schema_mismatch",
	KindInvalidParameter: "invalid_parameter",
	KindPermissionDenied: "permission_denied",
}

func (k Kind) String() string {
	if name, ok := kindName[k]; ok {
		return name
	}
	return kindName[KindUnknown]
}

// Define leaf errors here,
// WARN: take care to add new error,
// check whether you can use the errors below before adding a new one.
// Name: Err + related prefix + error name
var (
	// Settings related
	ErrInvalidSettings = newConvertError("invalid settings", 100, false, KindInvalidSettings)

	// Encoding related
	ErrEncoding = newConvertError("value cannot be encoded", 200, false, KindEncoding)

	// Input data related
	ErrCorruptData = newConvertError("corrupt data", 300, false, KindCorruptData)
	ErrParse       = newConvertError("malformed json", 301, false, KindParse)

	// Compatibility related
	ErrVersionMismatch = newConvertError("unsupported format version", 400, false, KindVersionMismatch)
	ErrSchemaMismatch  = newConvertError("schema mismatch", 401, false, KindSchemaMismatch)

	// Parameter related
	ErrParameterInvalid = newConvertError("invalid parameter", 1100, false, KindInvalidParameter)
	ErrParameterMissing = newConvertError("missing parameter", 1101, false, KindInvalidParameter)

	// Permission related
	ErrPermissionDenied = newConvertError("permission denied", 1200, false, KindPermissionDenied)

	// Do NOT export this,
	// never allow programmer using this, keep only for converting unknown error to convertError
	errUnexpected = newConvertError("unexpected error", (1<<16)-1, false, KindUnknown)
)

type errorOption func(*convertError)

func WithDetail(detail string) errorOption {
	return func(err *convertError) {
		err.detail = detail
	}
}

func WithRetriable(retriable bool) errorOption {
	return func(err *convertError) {
		err.retriable = retriable
	}
}

type convertError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	kind      Kind
}

func newConvertError(msg string, code int32, retriable bool, kind Kind, options ...errorOption) convertError {
	err := convertError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
		kind:      kind,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e convertError) code() int32 {
	return e.errCode
}

func (e convertError) Error() string {
	return e.msg
}

func (e convertError) Detail() string {
	return e.detail
}

func (e convertError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(convertError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// 多错误的 cause 定义为最后一个错误，保证 Code/KindOf 对组合错误依然有效。
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
