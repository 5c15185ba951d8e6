package recommend

import (
	"strconv"
	"strings"
)

const promptTemplate = `You are an expert on sightseeing spots and landmarks in Korea.
Recommend landmarks that fit the user's tastes and preferences.

User profile:
- Age: {age}
- Interests: {interests}
- Preferred activities: {activities}
- Travel style: {travelStyle}
- Budget: {budget}
- Location: {location}

Respond with JSON in exactly this format:
{
  "landmarks": [
    {
      "name": "landmark name",
      "description": "detailed description",
      "category": "category (e.g. culture, nature, history, shopping, food)",
      "latitude": latitude,
      "longitude": longitude,
      "rating": rating (1-5),
      "visitDuration": "expected visit time (minutes)",
      "priceLevel": "price level (1-4)",
      "tags": ["tag1", "tag2", "tag3"]
    }
  ],
  "route": {
    "totalDistance": "total distance (km)",
    "estimatedTime": "estimated time (minutes)",
    "difficulty": "difficulty (easy/moderate/hard)"
  }
}

Recommend 3 to 5 landmarks across a variety of categories that match the user's tastes.
Center the results on Seoul unless the user asks for another region, in which case center on that region.
`

// BuildPrompt fills the prompt template, substituting defaults for missing preferences.
func BuildPrompt(p Preferences) string {
	age := "20-30"
	if p.Age > 0 {
		age = strconv.Itoa(p.Age)
	}
	r := strings.NewReplacer(
		"{age}", age,
		"{interests}", joinOr(p.Interests, "culture, sightseeing"),
		"{activities}", joinOr(p.Activities, "walking, photography"),
		"{travelStyle}", stringOr(p.TravelStyle, "relaxed"),
		"{budget}", stringOr(p.Budget, "moderate"),
		"{location}", stringOr(p.Location, "Seoul"),
	)
	return r.Replace(promptTemplate)
}

func joinOr(items []string, fallback string) string {
	var kept []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			kept = append(kept, it)
		}
	}
	if len(kept) == 0 {
		return fallback
	}
	return strings.Join(kept, ", ")
}

func stringOr(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}
