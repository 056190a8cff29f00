package departure

import (
	"math"
	"strings"

	"github.com/golang/geo/s2"

	"github.com/m04kA/SMC-QueueService/internal/domain"
)

// EarthRadiusKm средний радиус Земли
const EarthRadiusKm = 6371.0088

// TravelEstimate оценка времени в пути
type TravelEstimate struct {
	Minutes    int
	DistanceKm *float64
	Estimated  bool // false - нет координат, использовано значение по умолчанию
}

// DistanceKm расстояние по большому кругу между двумя точками
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// TravelMinutes переводит расстояние во время со средней скоростью по дальности поездки
// Результат ограничен диапазоном [10, 120] минут
func TravelMinutes(distanceKm float64) int {
	speed := domain.LongTripSpeedKmh
	switch {
	case distanceKm < domain.ShortTripKm:
		speed = domain.ShortTripSpeedKmh
	case distanceKm < domain.MediumTripKm:
		speed = domain.MediumTripSpeedKmh
	}

	minutes := int(math.Ceil(distanceKm * 60 / speed))
	if minutes < domain.MinTravelMinutes {
		return domain.MinTravelMinutes
	}
	if minutes > domain.MaxTravelMinutes {
		return domain.MaxTravelMinutes
	}
	return minutes
}

// EstimateTravel время в пути от точки клиента до салона
func EstimateTravel(location *domain.DepartureLocation, salon *domain.Salon, fallbackMinutes int) TravelEstimate {
	if location == nil || location.Latitude == nil || location.Longitude == nil || !salon.HasCoordinates() {
		return TravelEstimate{Minutes: fallbackMinutes}
	}

	km := DistanceKm(*location.Latitude, *location.Longitude, *salon.Latitude, *salon.Longitude)
	rounded := math.Round(km*100) / 100
	return TravelEstimate{
		Minutes:    TravelMinutes(km),
		DistanceKm: &rounded,
		Estimated:  true,
	}
}

// resolveLocation выбирает точку выезда: адрес с предпочитаемой меткой, адрес по умолчанию, любой сохранённый
func resolveLocation(prefs *domain.CustomerDeparturePreferences, locations []*domain.CustomerLocation) *domain.DepartureLocation {
	if len(locations) == 0 {
		return nil
	}
	if prefs.PreferredLocationLabel != nil {
		for _, l := range locations {
			if strings.EqualFold(l.Label, *prefs.PreferredLocationLabel) {
				return l.ToDepartureLocation()
			}
		}
	}
	for _, l := range locations {
		if l.IsDefault {
			return l.ToDepartureLocation()
		}
	}
	return locations[0].ToDepartureLocation()
}
