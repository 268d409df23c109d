package models

type IndicatorChecksum struct {
	IndicatorID      int    `json:"-"`
	MetadataChecksum string `json:"metadataChecksum"`
	DataChecksum     string `json:"dataChecksum"`
}

// EntityChecksums holds exactly the indicators referenced by the entity's
// current config. A partial set is never constructed.
type EntityChecksums struct {
	Entity         EntityRef                 `json:"-"`
	ConfigChecksum string                    `json:"configChecksum"`
	Indicators     map[int]IndicatorChecksum `json:"indicators"`
}
