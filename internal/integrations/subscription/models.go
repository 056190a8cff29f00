package subscription

// TierPremium тариф, для которого включены прогнозы на основе истории
const TierPremium = "premium"

// Subscription модель подписки салона из сервиса подписок
type Subscription struct {
	SalonID  int64  `json:"salon_id"`
	Tier     string `json:"tier"`
	IsActive bool   `json:"is_active"`
}

// IsPremium активная премиум-подписка
func (s *Subscription) IsPremium() bool {
	return s.IsActive && s.Tier == TierPremium
}
