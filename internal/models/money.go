package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale 金额精度（小数位数）
const MoneyScale = 2

// Money 统一金额类型（保留 2 位小数）
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal 从 decimal 创建金额
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(MoneyScale)}
}

// ZeroMoney 零金额
func ZeroMoney() Money {
	return Money{Decimal: decimal.Zero}
}

// ParseMoney 解析字符串金额，保留原始精度，由调用方校验小数位
func ParseMoney(raw string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", raw, err)
	}
	return Money{Decimal: d}, nil
}

// FitsMoneyScale 判断金额小数位不超过 MoneyScale
func FitsMoneyScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(MoneyScale))
}

// MarshalJSON 统一输出 2 位小数的字符串
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.Round(MoneyScale).StringFixed(MoneyScale))
}

// UnmarshalJSON 解析金额（字符串或数字），数字按字面量解析避免浮点误差，不做舍入
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = s
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	m.Decimal = d
	return nil
}

// Value 用于数据库写入
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(MoneyScale).Value()
}

// Scan 用于数据库读取
func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(MoneyScale)
	return nil
}

// String 返回 2 位小数格式
func (m Money) String() string {
	return m.Decimal.Round(MoneyScale).StringFixed(MoneyScale)
}
