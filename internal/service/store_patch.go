package service

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"reseller_hub/internal/model"
)

const preferencesPrefix = "preferences."

// patchChange 一次字段写入
type patchChange struct {
	path  string
	value interface{}
}

// flattenPatch 将嵌套对象与点路径展开为叶子路径
// {"settings":{"defaultMarkup":25}} 与 {"settings.defaultMarkup":25} 等价
func flattenPatch(prefix string, patch map[string]interface{}, out *[]patchChange) {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if nested, ok := patch[k].(map[string]interface{}); ok {
			flattenPatch(path, nested, out)
			continue
		}
		*out = append(*out, patchChange{path: path, value: patch[k]})
	}
}

// applyStorePatch 把 patch 按字段合并到 store 上
// 只有可编辑字段生效，其余路径（含 id、reseller、status、审计字段、DNS 记录）被忽略
// 返回是否有字段实际发生变化，以及自定义域名是否变化
func applyStorePatch(store *model.Store, patch map[string]interface{}) (changed, domainChanged bool, err error) {
	var changes []patchChange
	flattenPatch("", patch, &changes)

	for _, c := range changes {
		var fieldChanged bool
		switch c.path {
		case "name":
			fieldChanged, err = setString(&store.Name, c)
		case "description":
			fieldChanged, err = setString(&store.Description, c)
		case "domainSettings.customDomain":
			fieldChanged, err = setCustomDomain(&store.DomainSettings, c)
			domainChanged = domainChanged || fieldChanged
		case "settings.defaultMarkup":
			fieldChanged, err = setInt(&store.Settings.DefaultMarkup, c)
		case "settings.minimumMarkup":
			fieldChanged, err = setInt(&store.Settings.MinimumMarkup, c)
		case "settings.maximumMarkup":
			fieldChanged, err = setInt(&store.Settings.MaximumMarkup, c)
		case "settings.autoFulfillment":
			fieldChanged, err = setBool(&store.Settings.AutoFulfillment, c)
		case "settings.lowBalanceAlert":
			fieldChanged, err = setFloat(&store.Settings.LowBalanceAlert, c)
		default:
			if strings.HasPrefix(c.path, preferencesPrefix) {
				fieldChanged = setPreference(store, strings.TrimPrefix(c.path, preferencesPrefix), c.value)
			}
		}
		if err != nil {
			return false, false, err
		}
		changed = changed || fieldChanged
	}
	return changed, domainChanged, nil
}

func typeError(c patchChange, want string) error {
	return ErrInvalidBody.Wrap(fmt.Errorf("%s: expected %s, got %T", c.path, want, c.value))
}

func setString(dst *string, c patchChange) (bool, error) {
	s, ok := c.value.(string)
	if !ok {
		return false, typeError(c, "string")
	}
	if *dst == s {
		return false, nil
	}
	*dst = s
	return true, nil
}

func setBool(dst *bool, c patchChange) (bool, error) {
	b, ok := c.value.(bool)
	if !ok {
		return false, typeError(c, "boolean")
	}
	if *dst == b {
		return false, nil
	}
	*dst = b
	return true, nil
}

func setInt(dst *int, c patchChange) (bool, error) {
	f, ok := c.value.(float64)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return false, typeError(c, "integer")
	}
	n := int(f)
	if *dst == n {
		return false, nil
	}
	*dst = n
	return true, nil
}

func setFloat(dst *float64, c patchChange) (bool, error) {
	f, ok := c.value.(float64)
	if !ok {
		return false, typeError(c, "number")
	}
	if *dst == f {
		return false, nil
	}
	*dst = f
	return true, nil
}

// setCustomDomain null 或空串表示解绑
func setCustomDomain(d *model.DomainSettings, c patchChange) (bool, error) {
	var next *string
	switch v := c.value.(type) {
	case nil:
	case string:
		if n := NormalizeDomain(v); n != "" {
			next = &n
		}
	default:
		return false, typeError(c, "string")
	}

	current := ""
	if d.CustomDomain != nil {
		current = *d.CustomDomain
	}
	nextValue := ""
	if next != nil {
		nextValue = *next
	}
	if current == nextValue {
		return false, nil
	}
	d.CustomDomain = next
	return true, nil
}

// setPreference 按路径写入 preferences，中间层级不存在时创建
func setPreference(store *model.Store, path string, value interface{}) bool {
	if path == "" {
		return false
	}
	if store.Preferences == nil {
		store.Preferences = map[string]interface{}{}
	}

	parts := strings.Split(path, ".")
	node := map[string]interface{}(store.Preferences)
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			node[part] = next
		}
		node = next
	}

	leaf := parts[len(parts)-1]
	if old, ok := node[leaf]; ok && reflect.DeepEqual(old, value) {
		return false
	}
	node[leaf] = value
	return true
}
