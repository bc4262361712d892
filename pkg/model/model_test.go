package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/logos-convert/pkg/binfmt"
	"github.com/lk2023060901/logos-convert/pkg/convert/converttest"
	"github.com/lk2023060901/logos-convert/pkg/settings"
	"github.com/lk2023060901/logos-convert/pkg/util/merr"
)

var (
	testKey    = strings.Repeat("0f", 32)
	testMacKey = strings.Repeat("a5", 32)
)

// profiles 覆盖压缩、加密与 JSON 引擎的主要组合。
func profiles() map[string]settings.Settings {
	return map[string]settings.Settings{
		"default": nil,
		"zstd":    {binfmt.KeyCompression: "zstd", binfmt.KeyCompressionLevel: "best"},
		"s2":      {binfmt.KeyCompression: "s2", binfmt.KeyChecksum: "false"},
		"aes": {
			binfmt.KeyEncryption:       "aes-gcm-hmac",
			binfmt.KeyEncryptionKey:    testKey,
			binfmt.KeyEncryptionMacKey: testMacKey,
		},
		"chacha": {
			binfmt.KeyCompression:   "zstd",
			binfmt.KeyEncryption:    "chacha20poly1305",
			binfmt.KeyEncryptionKey: testKey,
		},
		"jsoniter": {"json.engine": "jsoniter", "json.indent": "2"},
	}
}

func sampleAttributes() Attributes {
	return Attributes{
		Tags:         []int64{7, -3, 1 << 40},
		Descriptions: map[int64]int64{1: 10, 2: -20, 99: 0},
	}
}

func sampleServerUser() ServerUser {
	return ServerUser{
		ID:          "u-1001",
		PassHash:    "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		SigKey:      "-----BEGIN PUBLIC KEY-----\nMIIB\n-----END PUBLIC KEY-----",
		DisplayName: "Ádám",
		Attributes:  sampleAttributes(),
	}
}

type ModelSuite struct {
	suite.Suite
}

func (s *ModelSuite) TestPointConformance() {
	p := Point{X: 1, Y: 2}
	for name, st := range profiles() {
		s.Run(name, func() {
			converttest.Conformance(s.T(), PointFactory, p, st, p, PointOptions()...)
		})
	}
}

func (s *ModelSuite) TestPointIncludeY() {
	p := Point{X: 1, Y: 2}
	off := settings.Settings{KeyIncludeY: "false"}
	converttest.RoundTrip(s.T(), PointFactory, p, off, Point{X: 1})
	converttest.JSONRoundTrip(s.T(), PointFactory, p, off, Point{X: 1})

	text, err := p.ToJSON(off)
	s.Require().NoError(err)
	s.Equal(`{"x":1}`, text)

	// 读取侧关闭 include_y 时忽略已写出的 y。
	c, err := p.Serialize(binfmt.NewContainer(), nil)
	s.Require().NoError(err)
	got, err := PointFactory.Deserialize(c, off)
	s.NoError(err)
	s.Equal(Point{X: 1}, got)

	// 写出时省略 y，读取侧要求 y。
	c, err = p.Serialize(binfmt.NewContainer(), off)
	s.Require().NoError(err)
	converttest.DeserializeFails(s.T(), PointFactory, c, nil, merr.ErrCorruptData)
}

func (s *ModelSuite) TestPointFromJSON() {
	got, err := PointFactory.FromJSON(`{"x":1,"y":2}`, settings.Settings{})
	s.NoError(err)
	s.Equal(Point{X: 1, Y: 2}, got)

	got, err = PointFactory.FromJSON(`{"y":2,"x":1e3}`, nil)
	s.NoError(err)
	s.Equal(Point{X: 1000, Y: 2}, got)

	converttest.FromJSONFails(s.T(), PointFactory, `{"x":1}`, settings.Settings{}, merr.ErrSchemaMismatch)
	converttest.FromJSONFails(s.T(), PointFactory, `{"x":"1","y":2}`, nil, merr.ErrSchemaMismatch)
	converttest.FromJSONFails(s.T(), PointFactory, `{"x":1.5,"y":2}`, nil, merr.ErrSchemaMismatch)
	converttest.FromJSONFails(s.T(), PointFactory, `[1,2]`, nil, merr.ErrSchemaMismatch)
	converttest.FromJSONFails(s.T(), PointFactory, `{"x":1,`, nil, merr.ErrParse)
	converttest.FromJSONFails(s.T(), PointFactory, ``, nil, merr.ErrParse)

	extra := `{"x":1,"y":2,"z":3}`
	got, err = PointFactory.FromJSON(extra, nil)
	s.NoError(err)
	s.Equal(Point{X: 1, Y: 2}, got)
	converttest.FromJSONFails(s.T(), PointFactory, extra, settings.Settings{"json.strict": "true"}, merr.ErrSchemaMismatch)
}

func (s *ModelSuite) TestPointInvalidSettings() {
	p := Point{X: 1, Y: 2}
	bad := settings.Settings{KeyIncludeY: "maybe"}
	converttest.SerializeFails(s.T(), p, bad, merr.ErrInvalidSettings)
	converttest.ToJSONFails(s.T(), p, bad, merr.ErrInvalidSettings)
	converttest.FromJSONFails(s.T(), PointFactory, `{"x":1,"y":2}`, bad, merr.ErrInvalidSettings)

	c, err := p.Serialize(binfmt.NewContainer(), nil)
	s.Require().NoError(err)
	converttest.DeserializeFails(s.T(), PointFactory, c, bad, merr.ErrInvalidSettings)

	converttest.SerializeFails(s.T(), p, settings.Settings{binfmt.KeyEncryption: "aes-gcm-hmac"}, merr.ErrInvalidSettings)
	converttest.SerializeFails(s.T(), p, settings.Settings{binfmt.KeyFormatVersion: "2.0.0"}, merr.ErrInvalidSettings)
	converttest.ToJSONFails(s.T(), p, settings.Settings{"json.indent": "9"}, merr.ErrInvalidSettings)
}

func (s *ModelSuite) TestPointCorrupt() {
	p := Point{X: 1, Y: 2}
	c, err := p.Serialize(binfmt.NewContainer(), nil)
	s.Require().NoError(err)

	converttest.DeserializeFails(s.T(), PointFactory, nil, nil, merr.ErrCorruptData)
	converttest.DeserializeFails(s.T(), PointFactory, binfmt.NewContainer(), nil, merr.ErrCorruptData)
	converttest.DeserializeFails(s.T(), VersionedFactory, c, nil, merr.ErrCorruptData)

	data, err := c.MarshalBinary()
	s.Require().NoError(err)
	data[len(data)-1] ^= 0xff
	tampered := binfmt.NewContainer()
	s.Require().NoError(tampered.UnmarshalBinary(data))
	converttest.DeserializeFails(s.T(), PointFactory, tampered, nil, merr.ErrCorruptData)

	converttest.DeserializeFails(s.T(), PointFactory, c, settings.Settings{binfmt.KeyFormatVersion: "0.9.0"}, merr.ErrInvalidSettings)
}

func (s *ModelSuite) TestPointEncrypted() {
	p := Point{X: 1, Y: 2}
	st := profiles()["aes"]
	c, err := p.Serialize(binfmt.NewContainer(), st)
	s.Require().NoError(err)

	// 未配置加密的读取方不接受加密容器。
	converttest.DeserializeFails(s.T(), PointFactory, c, nil, merr.ErrVersionMismatch)

	wrong := settings.Settings{}.Merge(st).With(binfmt.KeyEncryptionKey, strings.Repeat("11", 32))
	converttest.DeserializeFails(s.T(), PointFactory, c, wrong, merr.ErrCorruptData)
}

func (s *ModelSuite) TestVersioned() {
	v := Versioned{Version: 1}
	v.Upgrade()
	v.Upgrade()
	s.Equal(int64(3), v.Version)

	for name, st := range profiles() {
		s.Run(name, func() {
			converttest.Conformance(s.T(), VersionedFactory, v, st, v, VersionedOptions()...)
		})
	}

	converttest.FromJSONFails(s.T(), VersionedFactory, `{}`, nil, merr.ErrSchemaMismatch)
	converttest.FromJSONFails(s.T(), VersionedFactory, `{"version":true}`, nil, merr.ErrSchemaMismatch)

	c, err := binfmt.Seal(binfmt.NewContainer(), VersionedTypeName, binfmt.NewWriter(), nil)
	s.Require().NoError(err)
	converttest.DeserializeFails(s.T(), VersionedFactory, c, nil, merr.ErrCorruptData)
}

func (s *ModelSuite) TestAttributesConformance() {
	a := sampleAttributes()
	for name, st := range profiles() {
		s.Run(name, func() {
			converttest.Conformance(s.T(), AttributesFactory, a, st, a, AttributesOptions()...)
		})
	}
	converttest.Conformance(s.T(), AttributesFactory, Attributes{}, nil, Attributes{}, AttributesOptions()...)
	converttest.Conformance(s.T(), AttributesFactory,
		Attributes{Tags: []int64{}, Descriptions: map[int64]int64{}}, nil, Attributes{}, AttributesOptions()...)
}

func (s *ModelSuite) TestAttributesJSON() {
	text, err := sampleAttributes().ToJSON(nil)
	s.Require().NoError(err)
	s.Equal(`{"descriptions":{"1":10,"2":-20,"99":0},"tags":[7,-3,1099511627776]}`, text)

	text, err = Attributes{}.ToJSON(nil)
	s.Require().NoError(err)
	s.Equal(`{"descriptions":{},"tags":[]}`, text)

	converttest.FromJSONFails(s.T(), AttributesFactory, `{"tags":[]}`, nil, merr.ErrSchemaMismatch)
	converttest.FromJSONFails(s.T(), AttributesFactory, `{"tags":[1,"a"],"descriptions":{}}`, nil, merr.ErrSchemaMismatch)
	converttest.FromJSONFails(s.T(), AttributesFactory, `{"tags":[],"descriptions":{"a":1}}`, nil, merr.ErrSchemaMismatch)
	converttest.FromJSONFails(s.T(), AttributesFactory, `{"tags":[],"descriptions":[]}`, nil, merr.ErrSchemaMismatch)
}

func (s *ModelSuite) TestAttributesBinaryOrder() {
	// 描述条目按键排序写出，与 map 遍历顺序无关。
	a := sampleAttributes()
	first, err := a.Serialize(binfmt.NewContainer(), nil)
	s.Require().NoError(err)
	for i := 0; i < 16; i++ {
		c, err := a.Clone().Serialize(binfmt.NewContainer(), nil)
		s.Require().NoError(err)
		s.True(first.Equal(c))
	}
}

func (s *ModelSuite) TestAttributesEdit() {
	var a Attributes
	s.NoError(a.AddTag(1))
	s.NoError(a.AddTag(2))
	s.ErrorIs(a.AddTag(1), merr.ErrParameterInvalid)

	s.NoError(a.ChangeTag(1, 3))
	s.Equal([]int64{3, 2}, a.Tags)
	s.NoError(a.ChangeTag(3, 3))
	s.ErrorIs(a.ChangeTag(1, 4), merr.ErrParameterInvalid)
	s.ErrorIs(a.ChangeTag(3, 2), merr.ErrParameterInvalid)

	s.NoError(a.DeleteTag(3))
	s.ErrorIs(a.DeleteTag(3), merr.ErrParameterInvalid)
	s.NoError(a.DeleteTag(2))
	s.Nil(a.Tags)

	s.NoError(a.AddDescription(1, 10))
	s.ErrorIs(a.AddDescription(1, 11), merr.ErrParameterInvalid)
	s.NoError(a.ChangeDescription(1, 12))
	s.Equal(map[int64]int64{1: 12}, a.Descriptions)
	s.ErrorIs(a.ChangeDescription(2, 1), merr.ErrParameterInvalid)
	s.NoError(a.DeleteDescription(1))
	s.ErrorIs(a.DeleteDescription(1), merr.ErrParameterInvalid)
	s.Nil(a.Descriptions)
	s.True(a.IsChanged())
	s.Equal(int64(0), a.Version())
}

func (s *ModelSuite) TestAttributesChangeTracking() {
	var a Attributes
	s.False(a.IsChanged())

	// 失败的编辑不标记修改。
	s.ErrorIs(a.DeleteTag(1), merr.ErrParameterInvalid)
	s.ErrorIs(a.ChangeDescription(1, 1), merr.ErrParameterInvalid)
	s.False(a.IsChanged())

	s.NoError(a.AddTag(1))
	s.True(a.IsChanged())

	a.Sync(sampleAttributes(), 7)
	s.False(a.IsChanged())
	s.Equal(int64(7), a.Version())
	s.Equal(sampleAttributes().Tags, a.Tags)
	s.Equal(sampleAttributes().Descriptions, a.Descriptions)

	s.NoError(a.DeleteDescription(99))
	s.True(a.IsChanged())
	b := a.Clone()
	s.True(b.IsChanged())
	s.Equal(int64(7), b.Version())

	// 同步的数据与调用方的值互不共享。
	data := sampleAttributes()
	a.Sync(data, 8)
	data.Tags[0] = 100
	s.Equal(int64(7), a.Tags[0])

	// 版本与修改标记不参与序列化。
	c, err := a.Serialize(binfmt.NewContainer(), nil)
	s.Require().NoError(err)
	got, err := AttributesFactory.Deserialize(c, nil)
	s.Require().NoError(err)
	s.Equal(int64(0), got.Version())
	s.False(got.IsChanged())
	s.Equal(sampleAttributes(), got)
}

func (s *ModelSuite) TestAttributesAvailability() {
	catalog := NewCatalog([]int64{1, 2, 3}, map[int64][]int64{10: {100, 101}, 11: nil})
	s.Equal([]int64{1, 2, 3}, catalog.Tags())
	s.Equal([]int64{10, 11}, catalog.DescriptionKeys())

	var a Attributes
	a.SetAvailability(catalog)

	s.NoError(a.AddTag(1))
	s.ErrorIs(a.AddTag(9), merr.ErrPermissionDenied)
	// 重复检查先于可用性检查。
	s.ErrorIs(a.AddTag(1), merr.ErrParameterInvalid)
	s.ErrorIs(a.ChangeTag(1, 9), merr.ErrPermissionDenied)
	s.ErrorIs(a.ChangeTag(5, 9), merr.ErrParameterInvalid)
	s.NoError(a.ChangeTag(1, 2))
	s.Equal([]int64{2}, a.Tags)

	s.NoError(a.AddDescription(10, 100))
	s.ErrorIs(a.AddDescription(12, 100), merr.ErrPermissionDenied)
	s.ErrorIs(a.AddDescription(11, 100), merr.ErrPermissionDenied)
	s.ErrorIs(a.ChangeDescription(10, 102), merr.ErrPermissionDenied)
	s.NoError(a.ChangeDescription(10, 101))
	s.Equal(map[int64]int64{10: 101}, a.Descriptions)

	err := a.AddDescription(11, 5)
	s.Equal(merr.KindPermissionDenied, merr.KindOf(err))
	s.ErrorContains(err, "description_value=5")

	// 目录更新后立即生效，删除不检查可用性。
	catalog.Update(nil, nil, 3)
	s.Equal(int64(3), catalog.Version())
	s.ErrorIs(a.AddTag(3), merr.ErrPermissionDenied)
	s.NoError(a.DeleteTag(2))
	s.NoError(a.DeleteDescription(10))

	a.SetAvailability(nil)
	s.NoError(a.AddTag(42))
}

func (s *ModelSuite) TestAttributesDuplicates() {
	for _, text := range []string{
		`{"tags":[5,5],"descriptions":{}}`,
		`{"tags":[1,2,3,1],"descriptions":{"1":1}}`,
		`{"tags":[],"descriptions":{"1":10,"01":20}}`,
		`{"tags":[],"descriptions":{"+1":10}}`,
	} {
		converttest.FromJSONFails(s.T(), AttributesFactory, text, nil, merr.ErrSchemaMismatch)
	}
	converttest.FromJSONFails(s.T(), ServerUserFactory,
		`{"id":"u","sig_key":"k","pass_hash":"h","display_name":"d","attributes":{"tags":[5,5],"descriptions":{}}}`,
		nil, merr.ErrSchemaMismatch)

	w := binfmt.NewWriter()
	w.Int64s(attributesFieldTags, []int64{5, 5})
	c, err := binfmt.Seal(binfmt.NewContainer(), AttributesTypeName, w, nil)
	s.Require().NoError(err)
	converttest.DeserializeFails(s.T(), AttributesFactory, c, nil, merr.ErrCorruptData)

	// 分成两段的 packed 标签同样检查重复。
	w = binfmt.NewWriter()
	w.Int64s(attributesFieldTags, []int64{1, 2})
	w.Int64s(attributesFieldTags, []int64{2})
	c, err = binfmt.Seal(binfmt.NewContainer(), AttributesTypeName, w, nil)
	s.Require().NoError(err)
	converttest.DeserializeFails(s.T(), AttributesFactory, c, nil, merr.ErrCorruptData)
}

func (s *ModelSuite) TestAttributesClone() {
	a := sampleAttributes()
	b := a.Clone()
	s.NoError(b.AddTag(100))
	s.NoError(b.ChangeDescription(1, 0))
	s.Equal(sampleAttributes(), a)
}

func (s *ModelSuite) TestBaseAndSignUser() {
	b := BaseUser{ID: "u-1"}
	sg := SignUser{ID: "u-1", SigKey: "key"}
	for name, st := range profiles() {
		s.Run(name, func() {
			converttest.Conformance(s.T(), BaseUserFactory, b, st, b, BaseUserOptions()...)
			converttest.Conformance(s.T(), SignUserFactory, sg, st, sg, SignUserOptions()...)
		})
	}
	converttest.Conformance(s.T(), BaseUserFactory, BaseUser{}, nil, BaseUser{})

	converttest.FromJSONFails(s.T(), SignUserFactory, `{"id":"u-1"}`, nil, merr.ErrSchemaMismatch)
	converttest.FromJSONFails(s.T(), BaseUserFactory, `{"id":1}`, nil, merr.ErrSchemaMismatch)
	converttest.SerializeFails(s.T(), BaseUser{ID: "\xff"}, nil, merr.ErrEncoding)
	converttest.ToJSONFails(s.T(), BaseUser{ID: "\xff"}, nil, merr.ErrEncoding)

	c, err := b.Serialize(binfmt.NewContainer(), nil)
	s.Require().NoError(err)
	converttest.DeserializeFails(s.T(), SignUserFactory, c, nil, merr.ErrCorruptData)
}

func (s *ModelSuite) TestServerUserConformance() {
	u := sampleServerUser()
	for name, st := range profiles() {
		s.Run(name, func() {
			converttest.Conformance(s.T(), ServerUserFactory, u, st, u, ServerUserOptions()...)
		})
	}
}

func (s *ModelSuite) TestServerUserRedact() {
	u := sampleServerUser()
	redact := settings.Settings{KeyRedactSecrets: "true"}
	want := u
	want.PassHash = ""
	converttest.RoundTrip(s.T(), ServerUserFactory, u, redact, want)
	converttest.JSONRoundTrip(s.T(), ServerUserFactory, u, redact, want)

	text, err := u.ToJSON(redact)
	s.Require().NoError(err)
	s.NotContains(text, "pass_hash")

	// 未脱敏的读取方要求 pass_hash。
	c, err := u.Serialize(binfmt.NewContainer(), redact)
	s.Require().NoError(err)
	converttest.DeserializeFails(s.T(), ServerUserFactory, c, nil, merr.ErrCorruptData)
	converttest.FromJSONFails(s.T(), ServerUserFactory, text, nil, merr.ErrSchemaMismatch)
}

func (s *ModelSuite) TestServerUserAttributes() {
	u := sampleServerUser()
	off := settings.Settings{KeyIncludeAttributes: "false"}
	want := u
	want.Attributes = Attributes{}
	converttest.RoundTrip(s.T(), ServerUserFactory, u, off, want)
	converttest.JSONRoundTrip(s.T(), ServerUserFactory, u, off, want)

	// 读取侧关闭 include_attributes 时忽略已写出的 attributes。
	c, err := u.Serialize(binfmt.NewContainer(), nil)
	s.Require().NoError(err)
	got, err := ServerUserFactory.Deserialize(c, off)
	s.NoError(err)
	s.Equal(want, got)

	converttest.FromJSONFails(s.T(), ServerUserFactory,
		`{"id":"u","sig_key":"k","pass_hash":"h","display_name":"d","attributes":{"tags":[]}}`, nil, merr.ErrSchemaMismatch)
	converttest.SerializeFails(s.T(), u, settings.Settings{KeyIncludeAttributes: "2"}, merr.ErrInvalidSettings)
}

func (s *ModelSuite) TestServerUserAttributesRequired() {
	u := sampleServerUser()
	off := settings.Settings{KeyIncludeAttributes: "false"}

	// 写出时关闭 include_attributes，默认读取方要求 attributes。
	c, err := u.Serialize(binfmt.NewContainer(), off)
	s.Require().NoError(err)
	converttest.DeserializeFails(s.T(), ServerUserFactory, c, nil, merr.ErrCorruptData)

	text, err := u.ToJSON(off)
	s.Require().NoError(err)
	s.NotContains(text, "attributes")
	converttest.FromJSONFails(s.T(), ServerUserFactory, text, nil, merr.ErrSchemaMismatch)

	// 空集合照常写出，满足必需字段。
	empty := u
	empty.Attributes = Attributes{}
	converttest.RoundTrip(s.T(), ServerUserFactory, empty, nil, empty)
	converttest.JSONRoundTrip(s.T(), ServerUserFactory, empty, nil, empty)
}

func (s *ModelSuite) TestInvalidUTF8Input() {
	for _, engine := range []string{"sonic", "jsoniter"} {
		st := settings.Settings{"json.engine": engine}
		converttest.FromJSONFails(s.T(), BaseUserFactory, "{\"id\":\"\xff\"}", st, merr.ErrParse)
		converttest.FromJSONFails(s.T(), SignUserFactory, "{\"id\":\"u\",\"sig_key\":\"k\xc3\"}", st, merr.ErrParse)
	}
}

func TestModel(t *testing.T) {
	suite.Run(t, new(ModelSuite))
}
