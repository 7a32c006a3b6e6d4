package scorer

import "github.com/BBBoring2025/annem-guvende/internal/config"

// AlertLevel maps a composite z-score to a tier:
//
//	0 normal      compositeZ <  gentle
//	1 gentle      gentle    <= compositeZ < serious
//	2 serious     serious   <= compositeZ < emergency
//	3 emergency   compositeZ >= emergency
func AlertLevel(compositeZ float64, alerts config.Alerts) int {
	switch {
	case compositeZ >= alerts.ZThresholdEmergency:
		return 3
	case compositeZ >= alerts.ZThresholdSerious:
		return 2
	case compositeZ >= alerts.ZThresholdGentle:
		return 1
	default:
		return 0
	}
}
