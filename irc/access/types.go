package access

type (
	// Class is the resolved access tier of a user. Order matters:
	// a plain record merge keeps the higher value and never downgrades.
	Class int

	// Lists holds the persisted account sets, one set per channel.
	// Field order is the persisted collection order, keep it stable
	// so saved files diff cleanly.
	Lists struct {
		Operator  map[string][]string `json:"operator"`
		Whitelist map[string][]string `json:"whitelist"`
		Blacklist map[string][]string `json:"blacklist"`
	}
)

const (
	ClassUnset Class = iota
	ClassAnyone
	ClassBlacklist
	ClassWhitelist
	ClassOperator
	ClassAdmin
)

func (c Class) String() string {
	switch c {
	case ClassAnyone:
		return "anyone"
	case ClassBlacklist:
		return "blacklist"
	case ClassWhitelist:
		return "whitelist"
	case ClassOperator:
		return "operator"
	case ClassAdmin:
		return "admin"
	default:
		return "unset"
	}
}
