package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SpecKind 表示规格字段值的类型标签。
//
// 不同品类的商品规格字段各不相同（手机和电视几乎没有共同字段），
// 所以规格以显式标签的变体类型存储，而不是在运行时反射动态对象结构。
// “字段缺失”与“字段为零值”是两种不同的状态：缺失 = map 中没有该 key。
type SpecKind string

const (
	SpecNumber SpecKind = "number" // 数值（如 ram_gb: 8）
	SpecText   SpecKind = "text"   // 文本（如 os: "Android 15"）
	SpecRange  SpecKind = "range"  // 数值区间（如 storage_gb: {min:128, max:512}）
	SpecGroup  SpecKind = "group"  // 嵌套结构（如 battery: {capacity_mah, wired_charging_w}）
)

// SpecValue 是单个规格字段的取值。
//
// 只有与 Kind 对应的字段有意义，其余字段为零值。
type SpecValue struct {
	Kind   SpecKind
	Number float64
	Text   string
	Min    float64
	Max    float64
	Group  map[string]SpecValue
}

// SpecMap 是规格字段名到取值的映射，作为 JSON 文档列整体存储。
type SpecMap map[string]SpecValue

// Num 构造数值规格。
func Num(v float64) SpecValue { return SpecValue{Kind: SpecNumber, Number: v} }

// Text 构造文本规格。
func Text(v string) SpecValue { return SpecValue{Kind: SpecText, Text: v} }

// Range 构造区间规格。
func Range(min, max float64) SpecValue { return SpecValue{Kind: SpecRange, Min: min, Max: max} }

// Group 构造嵌套规格。
func Group(fields map[string]SpecValue) SpecValue {
	return SpecValue{Kind: SpecGroup, Group: fields}
}

// MarshalJSON 按文档格式序列化：数值和文本为标量，区间为 {min,max}，嵌套为对象。
func (v SpecValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case SpecNumber:
		return json.Marshal(v.Number)
	case SpecText:
		return json.Marshal(v.Text)
	case SpecRange:
		return json.Marshal(map[string]float64{"min": v.Min, "max": v.Max})
	case SpecGroup:
		return json.Marshal(v.Group)
	default:
		return nil, fmt.Errorf("marshal spec value: unknown kind %q", v.Kind)
	}
}

// UnmarshalJSON 从文档格式还原标签类型。
//
// 只有 min/max 两个数值键的对象识别为区间，其余对象识别为嵌套结构。
func (v *SpecValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch t := raw.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return fmt.Errorf("unmarshal spec number: %w", err)
		}
		*v = Num(f)
		return nil
	case string:
		*v = Text(t)
		return nil
	case bool:
		// 布尔规格按文本保存，避免再引入一种标签
		*v = Text(strconv.FormatBool(t))
		return nil
	case map[string]interface{}:
		if isRangeObject(t) {
			min, _ := t["min"].(json.Number)
			max, _ := t["max"].(json.Number)
			minF, err := min.Float64()
			if err != nil {
				return fmt.Errorf("unmarshal spec range min: %w", err)
			}
			maxF, err := max.Float64()
			if err != nil {
				return fmt.Errorf("unmarshal spec range max: %w", err)
			}
			*v = Range(minF, maxF)
			return nil
		}
		group := make(map[string]SpecValue, len(t))
		for key, val := range t {
			sub, err := json.Marshal(val)
			if err != nil {
				return err
			}
			var sv SpecValue
			if err := json.Unmarshal(sub, &sv); err != nil {
				return fmt.Errorf("unmarshal spec field %q: %w", key, err)
			}
			group[key] = sv
		}
		*v = SpecValue{Kind: SpecGroup, Group: group}
		return nil
	default:
		return fmt.Errorf("unmarshal spec value: unsupported token %T", raw)
	}
}

func isRangeObject(m map[string]interface{}) bool {
	if len(m) != 2 {
		return false
	}
	_, hasMin := m["min"].(json.Number)
	_, hasMax := m["max"].(json.Number)
	return hasMin && hasMax
}

// NumberField 读取数值规格字段，字段缺失或类型不符时 ok 为 false。
func (m SpecMap) NumberField(key string) (float64, bool) {
	v, ok := m[key]
	if !ok || v.Kind != SpecNumber {
		return 0, false
	}
	return v.Number, true
}

// TextField 读取文本规格字段。
func (m SpecMap) TextField(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v.Kind != SpecText {
		return "", false
	}
	return v.Text, true
}

// RangeField 读取区间规格字段。标量数值视为退化区间 [n, n]。
func (m SpecMap) RangeField(key string) (min, max float64, ok bool) {
	v, present := m[key]
	if !present {
		return 0, 0, false
	}
	switch v.Kind {
	case SpecRange:
		return v.Min, v.Max, true
	case SpecNumber:
		return v.Number, v.Number, true
	default:
		return 0, 0, false
	}
}

// NumberAt 沿嵌套路径读取数值，如 NumberAt("battery", "capacity_mah")。
func (m SpecMap) NumberAt(path ...string) (float64, bool) {
	if len(path) == 0 {
		return 0, false
	}
	cur := SpecValue{Kind: SpecGroup, Group: m}
	for _, key := range path[:len(path)-1] {
		if cur.Kind != SpecGroup {
			return 0, false
		}
		next, ok := cur.Group[key]
		if !ok {
			return 0, false
		}
		cur = next
	}
	if cur.Kind != SpecGroup {
		return 0, false
	}
	leaf, ok := cur.Group[path[len(path)-1]]
	if !ok || leaf.Kind != SpecNumber {
		return 0, false
	}
	return leaf.Number, true
}

// Display 将规格值渲染为展示文本，用于对比表格。
func (v SpecValue) Display() string {
	switch v.Kind {
	case SpecNumber:
		return formatNumber(v.Number)
	case SpecText:
		return v.Text
	case SpecRange:
		return formatNumber(v.Min) + "-" + formatNumber(v.Max)
	case SpecGroup:
		keys := make([]string, 0, len(v.Group))
		for k := range v.Group {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+v.Group[k].Display())
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
