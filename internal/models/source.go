package models

import "gorm.io/datatypes"

// Source tables are owned by the CMS and only read here.

type Chart struct {
	ID             int    `gorm:"primaryKey"`
	Slug           string `gorm:"size:512"`
	Config         datatypes.JSON
	ConfigChecksum string `gorm:"size:64"`
	Published      bool   `gorm:"index"`
}

func (Chart) TableName() string {
	return "charts"
}

type MultiDimDataPage struct {
	ID             int    `gorm:"primaryKey"`
	Slug           string `gorm:"size:512"`
	Config         datatypes.JSON
	ConfigChecksum string `gorm:"size:64"`
	Published      bool   `gorm:"index"`
}

func (MultiDimDataPage) TableName() string {
	return "multi_dim_data_pages"
}

type Explorer struct {
	Slug           string `gorm:"primaryKey;size:512"`
	Config         datatypes.JSON
	ConfigChecksum string `gorm:"size:64"`
	Published      bool   `gorm:"index"`
}

func (Explorer) TableName() string {
	return "explorers"
}

// Variable carries the stored checksums of one indicator.
type Variable struct {
	ID               int    `gorm:"primaryKey"`
	MetadataChecksum string `gorm:"size:64"`
	DataChecksum     string `gorm:"size:64"`
}

func (Variable) TableName() string {
	return "variables"
}

// EntityDefinition is what change detection needs from a source row.
type EntityDefinition struct {
	Entity         EntityRef
	ConfigChecksum string
	IndicatorIDs   []int
}
