package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var dec100 = decimal.NewFromInt(100)

// ToMinorUnits 将元转换为分（网关侧金额单位）
// 超过两位小数的金额直接拒绝而不是四舍五入，保证转换无损
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	cents := amount.Mul(dec100)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than two fractional digits", amount.String())
	}
	return cents.IntPart(), nil
}

// FromMinorUnits 将分转换回元
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(dec100)
}
