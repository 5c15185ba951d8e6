package recommend

// DefaultRecommendation is served whenever no model produced a usable answer.
func DefaultRecommendation() Recommendation {
	return Recommendation{
		Landmarks: []Landmark{
			{
				Name:                 "경복궁",
				Description:          "조선 왕조의 대표적인 궁궐로 한국의 전통 건축미를 감상할 수 있습니다.",
				Category:             "역사",
				Latitude:             37.5796,
				Longitude:            126.9770,
				Rating:               4.5,
				VisitDurationMinutes: 90,
				PriceLevel:           2,
				Tags:                 []string{"역사", "문화", "궁궐"},
			},
			{
				Name:                 "남산타워",
				Description:          "서울의 전망을 한눈에 볼 수 있는 대표적인 관광지입니다.",
				Category:             "관광",
				Latitude:             37.5512,
				Longitude:            126.9882,
				Rating:               4.3,
				VisitDurationMinutes: 120,
				PriceLevel:           3,
				Tags:                 []string{"전망", "관광", "사진"},
			},
			{
				Name:                 "한강공원",
				Description:          "서울의 대표적인 휴식 공간으로 산책과 운동을 즐길 수 있습니다.",
				Category:             "자연",
				Latitude:             37.5219,
				Longitude:            126.9240,
				Rating:               4.4,
				VisitDurationMinutes: 60,
				PriceLevel:           1,
				Tags:                 []string{"자연", "산책", "운동"},
			},
		},
		Route: &RouteInfo{
			TotalDistanceKm:      8.5,
			EstimatedTimeMinutes: 180,
			Difficulty:           "보통",
		},
		Source: SourceDefault,
	}
}
