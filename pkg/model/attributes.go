package model

import (
	"fmt"
	"maps"
	"slices"

	"github.com/samber/lo"

	"github.com/lk2023060901/logos-convert/pkg/binfmt"
	"github.com/lk2023060901/logos-convert/pkg/convert"
	"github.com/lk2023060901/logos-convert/pkg/jsondoc"
	"github.com/lk2023060901/logos-convert/pkg/settings"
	"github.com/lk2023060901/logos-convert/pkg/util/merr"
	"github.com/lk2023060901/logos-convert/pkg/util/typeutil"
)

const (
	AttributesTypeName = "model.Attributes"

	attributesFieldTags        binfmt.Field = 1
	attributesFieldDescription binfmt.Field = 2

	entryFieldKey   binfmt.Field = 1
	entryFieldValue binfmt.Field = 2
)

// Attributes 是用户的标签与描述集合。
//
// Tags 保持插入顺序且不含重复值；Descriptions 以描述键映射到描述值。
// 空集合解码为 nil。
//
// 除数据外，Attributes 还在本地记录同步版本与是否有未提交的修改，
// 这两项不参与序列化，解码结果的版本为 0 且未修改。
type Attributes struct {
	Tags         []int64
	Descriptions map[int64]int64

	version int64
	changed bool
	avail   Availability
}

var _ convert.Serializable = Attributes{}

// AttributesFactory 是 Attributes 的类型级构造能力。
var AttributesFactory = convert.FactoryFuncs[Attributes]{
	Name:            AttributesTypeName,
	DeserializeFunc: DeserializeAttributes,
	FromJSONFunc:    AttributesFromJSON,
}

// AttributesOptions 列出 Attributes 识别的设置键。
func AttributesOptions() []settings.Option {
	return options()
}

func (Attributes) TypeName() string { return AttributesTypeName }

// Clone 返回深拷贝，版本、修改标记与可用性目录一并复制。
func (a Attributes) Clone() Attributes {
	a.Tags = slices.Clone(a.Tags)
	a.Descriptions = maps.Clone(a.Descriptions)
	return a
}

// Version 返回最近一次 Sync 记录的版本。
func (a Attributes) Version() int64 { return a.version }

// IsChanged 报告自最近一次 Sync 以来是否有编辑。
func (a Attributes) IsChanged() bool { return a.changed }

// Sync 用远端下发的 data 替换当前内容，记录 version 并清除修改标记。
// 可用性目录保持不变。
func (a *Attributes) Sync(data Attributes, version int64) {
	a.Tags = slices.Clone(data.Tags)
	a.Descriptions = maps.Clone(data.Descriptions)
	a.version = version
	a.changed = false
}

// SetAvailability 设置编辑时使用的可用性目录，nil 表示不做检查。
func (a *Attributes) SetAvailability(av Availability) {
	a.avail = av
}

func (a *Attributes) checkTag(tag int64) error {
	if a.avail != nil && !a.avail.TagAvailable(tag) {
		return merr.WrapErrPermissionDenied("tag", tag)
	}
	return nil
}

func (a *Attributes) checkDescription(key, value int64) error {
	if a.avail == nil {
		return nil
	}
	if !a.avail.DescriptionKeyAvailable(key) {
		return merr.WrapErrPermissionDenied("description_key", key)
	}
	if !a.avail.DescriptionValueAvailable(key, value) {
		return merr.WrapErrPermissionDenied("description_value", value, fmt.Sprintf("key %d", key))
	}
	return nil
}

// AddTag 追加标签。已存在时返回 ErrParameterInvalid，不可用时返回 ErrPermissionDenied。
func (a *Attributes) AddTag(tag int64) error {
	if slices.Contains(a.Tags, tag) {
		return merr.WrapErrParameterInvalidMsg("tag %d already exists", tag)
	}
	if err := a.checkTag(tag); err != nil {
		return err
	}
	a.Tags = append(a.Tags, tag)
	a.changed = true
	return nil
}

// ChangeTag 将 original 原地替换为 tag。
func (a *Attributes) ChangeTag(original, tag int64) error {
	idx := slices.Index(a.Tags, original)
	if idx < 0 {
		return merr.WrapErrParameterInvalidMsg("tag %d doesn't exist", original)
	}
	if original != tag && slices.Contains(a.Tags, tag) {
		return merr.WrapErrParameterInvalidMsg("tag %d already exists", tag)
	}
	if err := a.checkTag(tag); err != nil {
		return err
	}
	a.Tags[idx] = tag
	a.changed = true
	return nil
}

// DeleteTag 删除标签，删除不检查可用性。
func (a *Attributes) DeleteTag(tag int64) error {
	idx := slices.Index(a.Tags, tag)
	if idx < 0 {
		return merr.WrapErrParameterInvalidMsg("tag %d doesn't exist", tag)
	}
	a.Tags = slices.Delete(a.Tags, idx, idx+1)
	if len(a.Tags) == 0 {
		a.Tags = nil
	}
	a.changed = true
	return nil
}

// AddDescription 新增描述键，已存在时报错。
func (a *Attributes) AddDescription(key, value int64) error {
	if _, ok := a.Descriptions[key]; ok {
		return merr.WrapErrParameterInvalidMsg("description key %d already exists", key)
	}
	if err := a.checkDescription(key, value); err != nil {
		return err
	}
	if a.Descriptions == nil {
		a.Descriptions = make(map[int64]int64)
	}
	a.Descriptions[key] = value
	a.changed = true
	return nil
}

// ChangeDescription 修改已有描述键的值。
func (a *Attributes) ChangeDescription(key, value int64) error {
	if _, ok := a.Descriptions[key]; !ok {
		return merr.WrapErrParameterInvalidMsg("description key %d doesn't exist", key)
	}
	if err := a.checkDescription(key, value); err != nil {
		return err
	}
	a.Descriptions[key] = value
	a.changed = true
	return nil
}

// DeleteDescription 删除描述键。
func (a *Attributes) DeleteDescription(key int64) error {
	if _, ok := a.Descriptions[key]; !ok {
		return merr.WrapErrParameterInvalidMsg("description key %d doesn't exist", key)
	}
	delete(a.Descriptions, key)
	if len(a.Descriptions) == 0 {
		a.Descriptions = nil
	}
	a.changed = true
	return nil
}

// duplicateTag 返回 tags 中第一个重复出现的值。
func duplicateTag(tags []int64) (int64, bool) {
	seen := typeutil.NewSet[int64]()
	for _, t := range tags {
		if seen.Contain(t) {
			return t, true
		}
		seen.Insert(t)
	}
	return 0, false
}

// writeTo 写出标签与按键排序的描述条目。
func (a Attributes) writeTo(w *binfmt.Writer) {
	w.Int64s(attributesFieldTags, a.Tags)
	keys := lo.Keys(a.Descriptions)
	slices.Sort(keys)
	for _, k := range keys {
		entry := binfmt.NewWriter()
		entry.Int64(entryFieldKey, k)
		entry.Int64(entryFieldValue, a.Descriptions[k])
		w.Message(attributesFieldDescription, entry)
	}
}

// readAttributes 读取 writeTo 写出的内容。
func readAttributes(r *binfmt.Reader) (Attributes, error) {
	var a Attributes
	for r.Next() {
		switch r.Field() {
		case attributesFieldTags:
			a.Tags = append(a.Tags, r.Int64s()...)
		case attributesFieldDescription:
			entry := r.Message()
			var (
				key, value       int64
				hasKey, hasValue bool
			)
			for entry.Next() {
				switch entry.Field() {
				case entryFieldKey:
					key, hasKey = entry.Int64(), true
				case entryFieldValue:
					value, hasValue = entry.Int64(), true
				}
			}
			r.Propagate(entry)
			if r.Err() != nil {
				break
			}
			if !hasKey || !hasValue {
				return Attributes{}, merr.WrapErrCorruptData("incomplete description entry")
			}
			if _, dup := a.Descriptions[key]; dup {
				return Attributes{}, merr.WrapErrCorruptData(fmt.Sprintf("duplicate description key %d", key))
			}
			if a.Descriptions == nil {
				a.Descriptions = make(map[int64]int64)
			}
			a.Descriptions[key] = value
		}
	}
	if err := r.Err(); err != nil {
		return Attributes{}, err
	}
	if tag, dup := duplicateTag(a.Tags); dup {
		return Attributes{}, merr.WrapErrCorruptData(fmt.Sprintf("duplicate tag %d", tag))
	}
	if len(a.Tags) == 0 {
		a.Tags = nil
	}
	return a, nil
}

// object 返回 JSON 对象形式，空集合写为 [] 与 {}。
func (a Attributes) object() jsondoc.Object {
	tags := a.Tags
	if tags == nil {
		tags = []int64{}
	}
	return jsondoc.Object{
		"tags":         tags,
		"descriptions": jsondoc.Int64MapObject(a.Descriptions),
	}
}

// attributesFromDoc 读取 object 写出的内容。
func attributesFromDoc(doc *jsondoc.Doc) (Attributes, error) {
	if err := doc.Require("tags", "descriptions"); err != nil {
		return Attributes{}, err
	}
	if err := doc.Strict("tags", "descriptions"); err != nil {
		return Attributes{}, err
	}
	tags, err := doc.Int64s("tags")
	if err != nil {
		return Attributes{}, err
	}
	if tag, dup := duplicateTag(tags); dup {
		return Attributes{}, doc.Mismatch("tags", fmt.Sprintf("duplicate tag %d", tag))
	}
	descriptions, err := doc.Int64Map("descriptions")
	if err != nil {
		return Attributes{}, err
	}
	a := Attributes{Tags: tags, Descriptions: descriptions}
	if len(a.Tags) == 0 {
		a.Tags = nil
	}
	if len(a.Descriptions) == 0 {
		a.Descriptions = nil
	}
	return a, nil
}

// Serialize 实现 convert.Serializable。
func (a Attributes) Serialize(dst *binfmt.Container, s settings.Settings) (*binfmt.Container, error) {
	w := binfmt.NewWriter()
	a.writeTo(w)
	return binfmt.Seal(dst, AttributesTypeName, w, s)
}

// ToJSON 实现 convert.Serializable。
func (a Attributes) ToJSON(s settings.Settings) (string, error) {
	return jsondoc.Encode(a.object(), s)
}

// DeserializeAttributes 从容器重建 Attributes。
func DeserializeAttributes(src *binfmt.Container, s settings.Settings) (Attributes, error) {
	r, err := binfmt.Open(src, AttributesTypeName, s)
	if err != nil {
		return Attributes{}, err
	}
	return readAttributes(r)
}

// AttributesFromJSON 解析 JSON 文本构造 Attributes。
func AttributesFromJSON(text string, s settings.Settings) (Attributes, error) {
	doc, err := jsondoc.Decode(text, s)
	if err != nil {
		return Attributes{}, err
	}
	return attributesFromDoc(doc)
}
