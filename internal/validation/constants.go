package validation

// PAN length bounds, digits only
const (
	MinPANLength = 13
	MaxPANLength = 19
)
