// 包 oracle：街景可用性查询的窄接口与错误分类；采样循环只依赖此包，不感知具体 HTTP 实现
package oracle

import (
	"context"
	"errors"

	"streetview-randomizer/internal/geo"
)

var (
	// ErrAuth：密钥缺失或被拒绝，调用方应立即终止
	ErrAuth = errors.New("oracle auth error")
	// ErrTransport：网络、超时、限流等可重试错误
	ErrTransport = errors.New("oracle transport error")
	// ErrProtocol：响应无法解析或状态未知
	ErrProtocol = errors.New("oracle protocol error")
)

// Oracle：给定坐标与搜索半径（米），返回是否存在街景以及可能被吸附后的坐标
// 约束：“未找到”不是错误，以 found=false 返回；found=false 时返回坐标无意义。
type Oracle interface {
	Check(ctx context.Context, at geo.Coordinate, radiusM int) (bool, geo.Coordinate, error)
}

// Func adapts an ordinary function to the Oracle interface.
type Func func(ctx context.Context, at geo.Coordinate, radiusM int) (bool, geo.Coordinate, error)

func (f Func) Check(ctx context.Context, at geo.Coordinate, radiusM int) (bool, geo.Coordinate, error) {
	return f(ctx, at, radiusM)
}

// Recoverable reports whether err is an oracle failure the search loop may retry.
func Recoverable(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrProtocol)
}
