package geo

// 文档注释：轻量 geohash 编码（base32）
// 背景：用作可用性查询缓存的网格键，精度由搜索半径决定。
// 约束：仅用于缓存分桶，不参与包含判定。
var base32 = []byte("0123456789bcdefghjkmnpqrstuvwxyz")

// Geohash encodes the coordinate into a geohash of the given length.
func Geohash(c Coordinate, precision int) string {
	if precision <= 0 {
		return ""
	}
	latInt := [2]float64{-90, 90}
	lonInt := [2]float64{-180, 180}
	bit, ch := 0, 0
	even := true
	out := make([]byte, 0, precision)
	for len(out) < precision {
		if even {
			mid := (lonInt[0] + lonInt[1]) / 2
			if c.Lon >= mid {
				ch |= 1 << (4 - bit)
				lonInt[0] = mid
			} else {
				lonInt[1] = mid
			}
		} else {
			mid := (latInt[0] + latInt[1]) / 2
			if c.Lat >= mid {
				ch |= 1 << (4 - bit)
				latInt[0] = mid
			} else {
				latInt[1] = mid
			}
		}
		even = !even
		if bit < 4 {
			bit++
			continue
		}
		out = append(out, base32[ch])
		bit, ch = 0, 0
	}
	return string(out)
}
