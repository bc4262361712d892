package model

import (
	"maps"
	"slices"
	"sync"

	"github.com/lk2023060901/logos-convert/pkg/util/typeutil"
)

// Availability 决定哪些标签与描述可以被编辑进 Attributes。
type Availability interface {
	TagAvailable(tag int64) bool
	DescriptionKeyAvailable(key int64) bool
	DescriptionValueAvailable(key, value int64) bool
}

// Catalog 是由服务端下发的可用标签与描述目录，可并发读取。
type Catalog struct {
	mu           sync.RWMutex
	version      int64
	tags         typeutil.Set[int64]
	descriptions map[int64][]int64
}

var _ Availability = (*Catalog)(nil)

// NewCatalog 创建目录。descriptions 以描述键映射到该键允许的全部描述值。
func NewCatalog(tags []int64, descriptions map[int64][]int64) *Catalog {
	c := &Catalog{}
	c.Update(tags, descriptions, 0)
	return c
}

// Update 整体替换目录内容并记录 version。
func (c *Catalog) Update(tags []int64, descriptions map[int64][]int64, version int64) {
	set := typeutil.NewSet(tags...)
	desc := make(map[int64][]int64, len(descriptions))
	for k, vs := range descriptions {
		desc[k] = slices.Clone(vs)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags = set
	c.descriptions = desc
	c.version = version
}

// Version 返回最近一次 Update 的版本。
func (c *Catalog) Version() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Tags 返回全部可用标签，升序排列。
func (c *Catalog) Tags() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return typeutil.Sorted(c.tags)
}

// DescriptionKeys 返回全部可用描述键，升序排列。
func (c *Catalog) DescriptionKeys() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.descriptions))
}

func (c *Catalog) TagAvailable(tag int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tags.Contain(tag)
}

func (c *Catalog) DescriptionKeyAvailable(key int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.descriptions[key]
	return ok
}

func (c *Catalog) DescriptionValueAvailable(key, value int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Contains(c.descriptions[key], value)
}
