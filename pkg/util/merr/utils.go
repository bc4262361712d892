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
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case convertError:
		return specificErr.code()

	default:
		if errors.Is(specificErr, context.Canceled) {
			return CanceledCode
		} else if errors.Is(specificErr, context.DeadlineExceeded) {
			return TimeoutCode
		} else {
			return errUnexpected.code()
		}
	}
}

// KindOf 返回错误所属的分类，非本包构造的错误归为 KindUnknown。
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if cause, ok := errors.Cause(err).(convertError); ok {
		return cause.kind
	}
	return KindUnknown
}

// IsTyped 判断错误是否属于转换错误分类体系。
func IsTyped(err error) bool {
	_, ok := errors.Cause(err).(convertError)
	return ok
}

func IsRetryableErr(err error) bool {
	if err, ok := errors.Cause(err).(convertError); ok {
		return err.retriable
	}

	return false
}

func IsCanceledOrTimeout(err error) bool {
	return errors.IsAny(err, context.Canceled, context.DeadlineExceeded)
}

// Settings related
func WrapErrInvalidSettings(key string, actual any, msg ...string) error {
	err := wrapFields(ErrInvalidSettings,
		value("key", key),
		value("value", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrSettingMissing(key string, msg ...string) error {
	err := wrapFields(ErrInvalidSettings, value("missing_setting", key))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrSettingOutOfRange[T any](key string, lower, upper, actual T, msg ...string) error {
	err := wrapFields(ErrInvalidSettings, bound(key, actual, lower, upper))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Encoding related
func WrapErrEncoding(field string, reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrEncoding, reason, value("field", field))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrEncodingCause(cause error, msg ...string) error {
	if cause == nil {
		return nil
	}
	err := wrapFieldsWithDesc(ErrEncoding, cause.Error())
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Input data related
func WrapErrCorruptData(reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrCorruptData, reason)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrCorruptDataCause(cause error, msg ...string) error {
	if cause == nil {
		return nil
	}
	return WrapErrCorruptData(cause.Error(), msg...)
}

func WrapErrParse(cause error, msg ...string) error {
	if cause == nil {
		return nil
	}
	err := wrapFieldsWithDesc(ErrParse, cause.Error())
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Compatibility related
func WrapErrVersionMismatch(supported, actual any, msg ...string) error {
	err := wrapFields(ErrVersionMismatch,
		value("supported", supported),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrSchemaMismatch(field string, reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrSchemaMismatch, reason, value("field", field))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrSchemaFieldsMissing(fields []string, msg ...string) error {
	err := wrapFields(ErrSchemaMismatch, value("missing_fields", strings.Join(fields, ",")))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Parameter related
func WrapErrParameterInvalid[T any](expected, actual T, msg ...string) error {
	err := wrapFields(ErrParameterInvalid,
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrParameterInvalidMsg(fmt string, args ...any) error {
	return errors.Wrapf(ErrParameterInvalid, fmt, args...)
}

func WrapErrParameterMissing[T any](param T, msg ...string) error {
	err := wrapFields(ErrParameterMissing,
		value("missing_param", param),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Permission related
func WrapErrPermissionDenied(subject string, id any, msg ...string) error {
	err := wrapFields(ErrPermissionDenied, value(subject, id))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func wrapFields(err convertError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err convertError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}

type boundField struct {
	name  string
	value any
	lower any
	upper any
}

func bound(name string, value, lower, upper any) boundField {
	return boundField{
		name,
		value,
		lower,
		upper,
	}
}

func (f boundField) String() string {
	return fmt.Sprintf("%v out of range %v <= %s <= %v", f.value, f.lower, f.name, f.upper)
}
