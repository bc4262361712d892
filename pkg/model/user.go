package model

import (
	"github.com/lk2023060901/logos-convert/pkg/binfmt"
	"github.com/lk2023060901/logos-convert/pkg/convert"
	"github.com/lk2023060901/logos-convert/pkg/jsondoc"
	"github.com/lk2023060901/logos-convert/pkg/settings"
)

const (
	BaseUserTypeName   = "model.BaseUser"
	SignUserTypeName   = "model.SignUser"
	ServerUserTypeName = "model.ServerUser"

	// KeyRedactSecrets 为 true 时不写出 pass_hash，读取侧也不期望该字段。
	KeyRedactSecrets = "redact_secrets"
	// KeyIncludeAttributes 为 true 时 attributes 与 pass_hash 一样是必需字段；
	// 为 false 时不写出 attributes，读取侧忽略该字段，结果为空集合。
	KeyIncludeAttributes = "include_attributes"
)

const (
	userFieldID          binfmt.Field = 1
	userFieldSigKey      binfmt.Field = 2
	userFieldPassHash    binfmt.Field = 3
	userFieldDisplayName binfmt.Field = 4
	userFieldAttributes  binfmt.Field = 5
)

var userFieldNames = map[binfmt.Field]string{
	userFieldID:          "id",
	userFieldSigKey:      "sig_key",
	userFieldPassHash:    "pass_hash",
	userFieldDisplayName: "display_name",
	userFieldAttributes:  "attributes",
}

// BaseUser 只携带用户标识。
type BaseUser struct {
	ID string
}

// SignUser 是持有签名公钥的用户。
type SignUser struct {
	ID     string
	SigKey string
}

// ServerUser 是服务端保存的完整用户记录。
type ServerUser struct {
	ID          string
	PassHash    string
	SigKey      string
	DisplayName string
	Attributes  Attributes
}

var (
	_ convert.Serializable = BaseUser{}
	_ convert.Serializable = SignUser{}
	_ convert.Serializable = ServerUser{}
)

var (
	BaseUserFactory = convert.FactoryFuncs[BaseUser]{
		Name:            BaseUserTypeName,
		DeserializeFunc: DeserializeBaseUser,
		FromJSONFunc:    BaseUserFromJSON,
	}
	SignUserFactory = convert.FactoryFuncs[SignUser]{
		Name:            SignUserTypeName,
		DeserializeFunc: DeserializeSignUser,
		FromJSONFunc:    SignUserFromJSON,
	}
	ServerUserFactory = convert.FactoryFuncs[ServerUser]{
		Name:            ServerUserTypeName,
		DeserializeFunc: DeserializeServerUser,
		FromJSONFunc:    ServerUserFromJSON,
	}
)

func BaseUserOptions() []settings.Option { return options() }

func SignUserOptions() []settings.Option { return options() }

// ServerUserOptions 列出 ServerUser 识别的设置键。
func ServerUserOptions() []settings.Option {
	return options(
		settings.Option{Key: KeyRedactSecrets, Accepted: "bool", Default: "false", Doc: "omit pass_hash"},
		settings.Option{Key: KeyIncludeAttributes, Accepted: "bool", Default: "true", Doc: "write attributes and require them when reading"},
	)
}

func (BaseUser) TypeName() string   { return BaseUserTypeName }
func (SignUser) TypeName() string   { return SignUserTypeName }
func (ServerUser) TypeName() string { return ServerUserTypeName }

// readStrings 读取 want 中列出的字符串字段，其余字段跳过。
func readStrings(r *binfmt.Reader, want ...binfmt.Field) (map[binfmt.Field]string, error) {
	out := make(map[binfmt.Field]string, len(want))
	fields := newFieldTracker(userFieldNames)
	for r.Next() {
		f := r.Field()
		for _, w := range want {
			if f == w {
				out[f] = r.String()
				fields.mark(f)
				break
			}
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if err := fields.require(want...); err != nil {
		return nil, err
	}
	return out, nil
}

// docStrings 读取 keys 中列出的字符串字段，全部必需。
func docStrings(doc *jsondoc.Doc, keys ...string) (map[string]string, error) {
	if err := doc.Require(keys...); err != nil {
		return nil, err
	}
	if err := doc.Strict(keys...); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, err := doc.String(k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Serialize 实现 convert.Serializable。
func (u BaseUser) Serialize(dst *binfmt.Container, s settings.Settings) (*binfmt.Container, error) {
	w := binfmt.NewWriter()
	w.String(userFieldID, u.ID)
	return binfmt.Seal(dst, BaseUserTypeName, w, s)
}

// ToJSON 实现 convert.Serializable。
func (u BaseUser) ToJSON(s settings.Settings) (string, error) {
	return jsondoc.Encode(jsondoc.Object{"id": u.ID}, s)
}

func DeserializeBaseUser(src *binfmt.Container, s settings.Settings) (BaseUser, error) {
	r, err := binfmt.Open(src, BaseUserTypeName, s)
	if err != nil {
		return BaseUser{}, err
	}
	v, err := readStrings(r, userFieldID)
	if err != nil {
		return BaseUser{}, err
	}
	return BaseUser{ID: v[userFieldID]}, nil
}

func BaseUserFromJSON(text string, s settings.Settings) (BaseUser, error) {
	doc, err := jsondoc.Decode(text, s)
	if err != nil {
		return BaseUser{}, err
	}
	v, err := docStrings(doc, "id")
	if err != nil {
		return BaseUser{}, err
	}
	return BaseUser{ID: v["id"]}, nil
}

// Serialize 实现 convert.Serializable。
func (u SignUser) Serialize(dst *binfmt.Container, s settings.Settings) (*binfmt.Container, error) {
	w := binfmt.NewWriter()
	w.String(userFieldID, u.ID)
	w.String(userFieldSigKey, u.SigKey)
	return binfmt.Seal(dst, SignUserTypeName, w, s)
}

// ToJSON 实现 convert.Serializable。
func (u SignUser) ToJSON(s settings.Settings) (string, error) {
	return jsondoc.Encode(jsondoc.Object{"id": u.ID, "sig_key": u.SigKey}, s)
}

func DeserializeSignUser(src *binfmt.Container, s settings.Settings) (SignUser, error) {
	r, err := binfmt.Open(src, SignUserTypeName, s)
	if err != nil {
		return SignUser{}, err
	}
	v, err := readStrings(r, userFieldID, userFieldSigKey)
	if err != nil {
		return SignUser{}, err
	}
	return SignUser{ID: v[userFieldID], SigKey: v[userFieldSigKey]}, nil
}

func SignUserFromJSON(text string, s settings.Settings) (SignUser, error) {
	doc, err := jsondoc.Decode(text, s)
	if err != nil {
		return SignUser{}, err
	}
	v, err := docStrings(doc, "id", "sig_key")
	if err != nil {
		return SignUser{}, err
	}
	return SignUser{ID: v["id"], SigKey: v["sig_key"]}, nil
}

type serverUserConfig struct {
	redact     bool
	attributes bool
}

func parseServerUserConfig(s settings.Settings) (serverUserConfig, error) {
	redact, err := s.Bool(KeyRedactSecrets, false)
	if err != nil {
		return serverUserConfig{}, err
	}
	attributes, err := s.Bool(KeyIncludeAttributes, true)
	if err != nil {
		return serverUserConfig{}, err
	}
	return serverUserConfig{redact: redact, attributes: attributes}, nil
}

// Serialize 实现 convert.Serializable。
func (u ServerUser) Serialize(dst *binfmt.Container, s settings.Settings) (*binfmt.Container, error) {
	cfg, err := parseServerUserConfig(s)
	if err != nil {
		return nil, err
	}
	w := binfmt.NewWriter()
	w.String(userFieldID, u.ID)
	w.String(userFieldSigKey, u.SigKey)
	if !cfg.redact {
		w.String(userFieldPassHash, u.PassHash)
	}
	w.String(userFieldDisplayName, u.DisplayName)
	if cfg.attributes {
		sub := binfmt.NewWriter()
		u.Attributes.writeTo(sub)
		w.Message(userFieldAttributes, sub)
	}
	return binfmt.Seal(dst, ServerUserTypeName, w, s)
}

// ToJSON 实现 convert.Serializable。
func (u ServerUser) ToJSON(s settings.Settings) (string, error) {
	cfg, err := parseServerUserConfig(s)
	if err != nil {
		return "", err
	}
	obj := jsondoc.Object{
		"id":           u.ID,
		"sig_key":      u.SigKey,
		"display_name": u.DisplayName,
	}
	if !cfg.redact {
		obj["pass_hash"] = u.PassHash
	}
	if cfg.attributes {
		obj["attributes"] = u.Attributes.object()
	}
	return jsondoc.Encode(obj, s)
}

// DeserializeServerUser 从容器重建 ServerUser。
// redact_secrets 为 true 时 PassHash 为空，include_attributes 为 false 时 Attributes 为空；
// 其余情况下缺少 pass_hash 或 attributes 都返回 ErrCorruptData。
func DeserializeServerUser(src *binfmt.Container, s settings.Settings) (ServerUser, error) {
	cfg, err := parseServerUserConfig(s)
	if err != nil {
		return ServerUser{}, err
	}
	r, err := binfmt.Open(src, ServerUserTypeName, s)
	if err != nil {
		return ServerUser{}, err
	}

	var u ServerUser
	fields := newFieldTracker(userFieldNames)
	for r.Next() {
		switch f := r.Field(); f {
		case userFieldID:
			u.ID = r.String()
		case userFieldSigKey:
			u.SigKey = r.String()
		case userFieldPassHash:
			if cfg.redact {
				continue
			}
			u.PassHash = r.String()
		case userFieldDisplayName:
			u.DisplayName = r.String()
		case userFieldAttributes:
			if !cfg.attributes {
				continue
			}
			sub := r.Message()
			if r.Err() != nil {
				continue
			}
			a, err := readAttributes(sub)
			if err != nil {
				return ServerUser{}, err
			}
			u.Attributes = a
		default:
			continue
		}
		fields.mark(r.Field())
	}
	if err := r.Err(); err != nil {
		return ServerUser{}, err
	}

	required := []binfmt.Field{userFieldID, userFieldSigKey, userFieldDisplayName}
	if !cfg.redact {
		required = append(required, userFieldPassHash)
	}
	if cfg.attributes {
		required = append(required, userFieldAttributes)
	}
	if err := fields.require(required...); err != nil {
		return ServerUser{}, err
	}
	return u, nil
}

// ServerUserFromJSON 解析 JSON 文本构造 ServerUser。
func ServerUserFromJSON(text string, s settings.Settings) (ServerUser, error) {
	cfg, err := parseServerUserConfig(s)
	if err != nil {
		return ServerUser{}, err
	}
	doc, err := jsondoc.Decode(text, s)
	if err != nil {
		return ServerUser{}, err
	}

	keys := []string{"id", "sig_key", "display_name"}
	if !cfg.redact {
		keys = append(keys, "pass_hash")
	}
	if cfg.attributes {
		keys = append(keys, "attributes")
	}
	if err := doc.Require(keys...); err != nil {
		return ServerUser{}, err
	}
	if err := doc.Strict("id", "sig_key", "display_name", "pass_hash", "attributes"); err != nil {
		return ServerUser{}, err
	}

	var u ServerUser
	if u.ID, err = doc.String("id"); err != nil {
		return ServerUser{}, err
	}
	if u.SigKey, err = doc.String("sig_key"); err != nil {
		return ServerUser{}, err
	}
	if u.DisplayName, err = doc.String("display_name"); err != nil {
		return ServerUser{}, err
	}
	if !cfg.redact {
		if u.PassHash, err = doc.String("pass_hash"); err != nil {
			return ServerUser{}, err
		}
	}
	if cfg.attributes {
		sub, err := doc.Object("attributes")
		if err != nil {
			return ServerUser{}, err
		}
		if u.Attributes, err = attributesFromDoc(sub); err != nil {
			return ServerUser{}, err
		}
	}
	return u, nil
}
