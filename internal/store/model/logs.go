package model

import "gorm.io/datatypes"

// SignalLogModel maps to 'signal_log': one row per strategy signal and the
// verdict the signal handler reached.
type SignalLogModel struct {
	ID        int64          `gorm:"column:id;primaryKey"`
	Symbol    string         `gorm:"column:symbol;index"`
	Type      string         `gorm:"column:type"`
	Strategy  string         `gorm:"column:strategy"`
	Price     float64        `gorm:"column:price"`
	Strength  float64        `gorm:"column:strength"`
	Accepted  bool           `gorm:"column:accepted"`
	Reason    string         `gorm:"column:reason"`
	OrderID   string         `gorm:"column:order_id"`
	Params    datatypes.JSON `gorm:"column:params;type:TEXT"`
	Timestamp int64          `gorm:"column:timestamp;index"`
}

func (SignalLogModel) TableName() string { return "signal_log" }
