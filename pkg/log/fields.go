package log

import "go.uber.org/zap"

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNameOp        = "op"
	FieldNameType      = "type"
)

func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldOp 标注转换操作名，取值见 metrics.Op*。
func FieldOp(op string) zap.Field {
	return zap.String(FieldNameOp, op)
}

// FieldType 标注被转换的类型名。
func FieldType(typeName string) zap.Field {
	return zap.String(FieldNameType, typeName)
}
