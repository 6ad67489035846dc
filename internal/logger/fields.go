package logger

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Chat
	FieldConnID = "conn_id"
	FieldRoom   = "room"
	FieldEvent  = "event"
	FieldPeer   = "partner_id"

	FieldService = "service"
)
