package telegram

// enumFields is the fixed set of platform fields carrying enumerated
// values. Decoding wraps string values under these keys as graph.Enum so
// the normalizer relabels them without inspecting arbitrary fields at
// runtime. The set is closed on purpose; extend it only when the platform
// schema grows a new enum-typed field.
var enumFields = map[string]bool{
	"type":    true, // chat type, message entity type, poll type
	"status":  true, // chat member status
	"media":   true, // message media type
	"service": true, // service message type
	"action":  true, // chat action
}
