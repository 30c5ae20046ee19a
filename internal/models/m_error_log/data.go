package m_error_log

import "time"

// Data represents the database model for the shop_error_logs table.
type Data struct {
	ShopID    string
	Entries   string // JSON array of strings
	Version   int64
	UpdatedAt time.Time
}
