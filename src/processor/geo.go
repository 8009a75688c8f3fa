package processor

import (
	"fmt"
	"sort"

	"EcomInsight/src/model"
)

// DefaultFastDays 配送天数不超过该值的线路标记为快速
const DefaultFastDays = 3.0

// Routes 由线路记录生成地图线路，cities 为空表示全部买家城市
// 坐标无效的记录被跳过
func Routes(locations []model.Location, cities []string, fastDays float64) []model.Route {
	selected := make(map[string]struct{}, len(cities))
	for _, c := range cities {
		selected[c] = struct{}{}
	}

	out := make([]model.Route, 0, len(locations))
	for _, l := range locations {
		if len(selected) > 0 {
			if _, ok := selected[l.CustomerCity]; !ok {
				continue
			}
		}
		if !isFinite(l.SellerLat) || !isFinite(l.SellerLon) || !isFinite(l.CustomerLat) || !isFinite(l.CustomerLon) {
			continue
		}
		out = append(out, model.Route{
			SellerCity:    l.SellerCity,
			CustomerCity:  l.CustomerCity,
			SellerLat:     l.SellerLat,
			SellerLon:     l.SellerLon,
			CustomerLat:   l.CustomerLat,
			CustomerLon:   l.CustomerLon,
			DeliverySpeed: l.DeliverySpeed,
			Fast:          l.DeliverySpeed <= fastDays,
		})
	}
	return out
}

// CustomerCities 去重后的买家城市，按名称排序
func CustomerCities(locations []model.Location) []string {
	seen := make(map[string]struct{})
	for _, l := range locations {
		if l.CustomerCity != "" {
			seen[l.CustomerCity] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Tooltip 线路提示文本
func Tooltip(r model.Route) string {
	return fmt.Sprintf("From: %s To: %s | Speed: %g days", r.SellerCity, r.CustomerCity, r.DeliverySpeed)
}
