package telemetry

// Span attribute keys used for instrumentation.
const (
	AttrOperation = "asset_api.operation"
	AttrQuery     = "asset_api.query"
	AttrLimit     = "asset_api.limit"
	AttrOffset    = "asset_api.offset"
	AttrItemID    = "asset_api.item_id"
	AttrField     = "asset_api.field"
	AttrStatus    = "http.status_code"
)
