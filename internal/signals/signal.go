package signals

import (
	"time"

	"signal-scanner/internal/patterns"
)

// Direction is the trade side a signal recommends.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Urgency classifies how quickly a fresh signal demands attention.
type Urgency string

const (
	UrgencyUrgent   Urgency = "URGENT"
	UrgencyModerate Urgency = "MODERATE"
	UrgencyWatch    Urgency = "WATCH"
)

// Signal is the scored, tradeable view of a confluence group. Field names
// are consumed by downstream clients and must stay stable.
type Signal struct {
	Symbol                string          `json:"symbol"`
	Pattern               patterns.Kind   `json:"pattern"`
	Confidence            float64         `json:"confidence"`
	SignalQuality         float64         `json:"signalQuality"`
	EntryPrice            float64         `json:"entryPrice"`
	Target                float64         `json:"target"`
	StopLoss              float64         `json:"stopLoss"`
	RiskPercent           float64         `json:"riskPercent"`
	RewardPercent         float64         `json:"rewardPercent"`
	RiskRewardRatio       float64         `json:"riskRewardRatio"`
	Direction             Direction       `json:"direction"`
	Timestamp             time.Time       `json:"timestamp"`
	AgeMinutes            float64         `json:"ageMinutes"`
	Urgency               Urgency         `json:"urgency"`
	Volume                float64         `json:"volume"`
	AvgVolume             float64         `json:"avgVolume"`
	VolumeRatio           float64         `json:"volumeRatio"`
	HasVolumeConfirmation bool            `json:"hasVolumeConfirmation"`
	IsChartPattern        bool            `json:"isChartPattern"`
	IsConfluence          bool            `json:"isConfluence"`
	ConfluenceCount       int             `json:"confluenceCount"`
	ConfluentPatterns     []patterns.Kind `json:"confluentPatterns,omitempty"`
	IsFresh               bool            `json:"isFresh"`
}
