package models

// AnalysisRequest triggers a labeling run via the HTTP surface.
type AnalysisRequest struct {
	AnalysisType string `json:"analysisType" default:"daily" validate:"oneof=daily on-demand"`
	StartDate    string `json:"startDate" validate:"omitempty"`
	EndDate      string `json:"endDate" validate:"omitempty"`
}

// ExchangeStatus reports the rate-limiter view of one exchange.
type ExchangeStatus struct {
	Name                           string `json:"name"`
	TimeUntilNextCollectionMs      int64  `json:"timeUntilNextCollectionMs"`
	TimeUntilNextCollectionMinutes int64  `json:"timeUntilNextCollectionMinutes"`
	CanCollectNow                  bool   `json:"canCollectNow"`
}

// CollectionStats reports the limiter status across all configured exchanges.
type CollectionStats struct {
	CollectionIntervalMinutes int              `json:"collectionIntervalMinutes"`
	CollectionIntervalMs      int64            `json:"collectionIntervalMs"`
	Exchanges                 []ExchangeStatus `json:"exchanges"`
	Timestamp                 string           `json:"timestamp"`
}
