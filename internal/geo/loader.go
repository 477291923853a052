package geo

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	// ErrGeometryLoad：边界数据缺失、不可读或格式错误
	ErrGeometryLoad = errors.New("geometry load error")
	// ErrUnknownCountry：请求的国家代码不在数据集中
	ErrUnknownCountry = errors.New("unknown country")
)

// 属性键候选：TM_WORLD_BORDERS 使用 ISO3/NAME，Natural Earth 使用 ISO_A3/ADM0_A3/NAME_EN 等
var (
	codeKeys = []string{"ISO3", "iso3", "ISO_A3", "iso_a3", "ADM0_A3", "adm0_a3"}
	nameKeys = []string{"NAME", "name", "NAME_EN", "name_en", "ADMIN", "admin", "NAME_LONG", "name_long"}
)

// 文档注释：从 GeoJSON 文件加载国家边界
// 背景：数据集为国家级 FeatureCollection（如 TM_WORLD_BORDERS 转换后的 GeoJSON）；同一代码的多个要素合并为一个多面。
// 约束：filter 为空时返回全部国家；代码大小写不敏感；任一代码不存在即返回 ErrUnknownCountry。
// 返回按代码排序的列表。
func LoadCountries(path string, filter []string) ([]*Country, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeometryLoad, err)
	}
	all, err := ParseCountries(b)
	if err != nil {
		return nil, err
	}
	return Filter(all, filter)
}

// ParseCountries decodes a GeoJSON FeatureCollection of country boundaries.
func ParseCountries(data []byte) ([]*Country, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode geojson: %w", ErrGeometryLoad, err)
	}
	grouped := make(map[string]*Country)
	for _, f := range fc.Features {
		code := strings.ToUpper(strings.TrimSpace(firstString(f.Properties, codeKeys)))
		if !isAlpha3(code) {
			continue
		}
		polys := asMultiPolygon(f.Geometry)
		if len(polys) == 0 {
			continue
		}
		c, ok := grouped[code]
		if !ok {
			c = &Country{Code: code}
			grouped[code] = c
		}
		if c.Name == "" {
			c.Name = strings.TrimSpace(firstString(f.Properties, nameKeys))
		}
		c.Boundary = append(c.Boundary, polys...)
	}
	if len(grouped) == 0 {
		return nil, fmt.Errorf("%w: dataset contains no usable countries", ErrGeometryLoad)
	}
	list := make([]*Country, 0, len(grouped))
	for _, c := range grouped {
		list = append(list, NewCountry(c.Code, c.Name, c.Boundary))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list, nil
}

// Filter：按代码筛选活动国家集合
// 约束：结果按代码排序；重复代码只保留一次。
func Filter(all []*Country, codes []string) ([]*Country, error) {
	if len(codes) == 0 {
		return all, nil
	}
	index := make(map[string]*Country, len(all))
	for _, c := range all {
		index[c.Code] = c
	}
	seen := make(map[string]bool, len(codes))
	out := make([]*Country, 0, len(codes))
	for _, raw := range codes {
		code := strings.ToUpper(strings.TrimSpace(raw))
		if code == "" || seen[code] {
			continue
		}
		c, ok := index[code]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCountry, raw)
		}
		seen[code] = true
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func asMultiPolygon(g orb.Geometry) orb.MultiPolygon {
	var out orb.MultiPolygon
	switch v := g.(type) {
	case orb.Polygon:
		if p := cleanPolygon(v); p != nil {
			out = append(out, p)
		}
	case orb.MultiPolygon:
		for _, poly := range v {
			if p := cleanPolygon(poly); p != nil {
				out = append(out, p)
			}
		}
	}
	return out
}

// 丢弃少于 3 个点的环；外环无效时整个面丢弃
func cleanPolygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, 0, len(p))
	for i, r := range p {
		if len(r) < 3 {
			if i == 0 {
				return nil
			}
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// 数据集中的占位代码（如 "-99"）不是有效国家代码
func isAlpha3(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

func firstString(p geojson.Properties, keys []string) string {
	for _, k := range keys {
		if s := p.MustString(k, ""); s != "" {
			return s
		}
	}
	return ""
}
