// 包 geo：国家边界几何与坐标模型，供采样核心读取；几何一次加载，运行期只读
package geo

import (
	"strconv"

	"github.com/paulmach/orb"
)

// Coordinate：WGS84 经纬度坐标（值类型）
// 约束：纬度 [-90,90]，经度 [-180,180]；仅按两个分量逐一相等比较，不做跨日界线归一化。
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point：转换为 orb 点（X=经度，Y=纬度）
func (c Coordinate) Point() orb.Point { return orb.Point{c.Lon, c.Lat} }

// FromPoint：orb 点转换为坐标
func FromPoint(p orb.Point) Coordinate { return Coordinate{Lat: p.Lat(), Lon: p.Lon()} }

// Valid：经纬度是否落在合法范围内
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// Country：国家记录
// 背景：边界按 GeoJSON 约定组织为多面，每个面第一环为外环，其余为洞；Bound 为全部面的包围盒。
// 约束：Area/Weight 仅在采样器构建时按需填充（未启用面积加权时保持为 0）；加载后其余字段不再修改。
type Country struct {
	Code     string
	Name     string
	Boundary orb.MultiPolygon
	Bound    orb.Bound

	// Area：等面积投影下的面积（平方米），可能经过低覆盖修正
	Area float64
	// Weight：单次抽取该国的概率
	Weight float64

	// 各面外环的包围盒，与 Boundary 一一对应
	polyBounds []orb.Bound
}

// NewCountry builds a country and derives its bounding boxes from the boundary.
func NewCountry(code, name string, boundary orb.MultiPolygon) *Country {
	bounds := make([]orb.Bound, len(boundary))
	for i, poly := range boundary {
		if len(poly) > 0 {
			bounds[i] = poly[0].Bound()
		}
	}
	return &Country{Code: code, Name: name, Boundary: boundary, Bound: boundary.Bound(), polyBounds: bounds}
}
