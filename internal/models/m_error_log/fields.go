package m_error_log

// Field name constants for the shop_error_logs table.
const (
	TableName = "shop_error_logs"

	ShopID    = "shop_id"
	Entries   = "entries"
	Version   = "version"
	UpdatedAt = "updated_at"
)
