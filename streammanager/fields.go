package streammanager

import (
	"github.com/shopspring/decimal"
)

// Fields 字段名到值的映射，nil 表示该字段当前没有值
type Fields map[string]*string

// Get returns the value of name and whether it is present.
func (f Fields) Get(name string) (string, bool) {
	v, ok := f[name]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// String returns the value of name, or "" when absent.
func (f Fields) String(name string) string {
	v, _ := f.Get(name)
	return v
}

// Decimal parses the value of name. ok is false when the field is absent or empty.
func (f Fields) Decimal(name string) (d decimal.Decimal, ok bool, err error) {
	v, present := f.Get(name)
	if !present || v == "" {
		return decimal.Zero, false, nil
	}
	d, err = decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}

// Clone 复制一份，值指针指向新的字符串
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		if v == nil {
			out[k] = nil
			continue
		}
		s := *v
		out[k] = &s
	}
	return out
}
