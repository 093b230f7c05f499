package classify

import "strings"

// Channel is the fulfillment channel an order row belongs to.
type Channel int

const (
	// Neither means the row is a real pending order but matches no
	// watched channel (e.g. a plain home-delivery order).
	Neither Channel = iota
	// Collect is the in-store pickup channel ("Click & Collect").
	Collect
	// Wolt is the expedited third-party same-day delivery channel.
	Wolt
	// Excluded means the row has left the pending queue (completed,
	// cancelled, handed over) or carries no status at all.
	Excluded
)

func (c Channel) String() string {
	switch c {
	case Collect:
		return "collect"
	case Wolt:
		return "wolt"
	case Excluded:
		return "excluded"
	default:
		return "neither"
	}
}

// Config holds the keyword and code vocabularies that drive
// classification. All entries are matched case-insensitively as
// substrings, except completed statuses which match the upper-cased
// status exactly or as a substring.
type Config struct {
	CompletedStatuses []string `json:"completedStatuses"`
	CollectKeywords   []string `json:"collectKeywords"`
	CollectCodes      []string `json:"collectCodes"`
	ShippingKeywords  []string `json:"shippingKeywords"`
	WoltKeywords      []string `json:"woltKeywords"`
	WoltCodes         []string `json:"woltCodes"`
}

// genericTypeLabels are order-type texts too unspecific to ever count as
// Collect. Guards against default/unclassified labels being miscounted.
var genericTypeLabels = map[string]bool{
	"order":    true,
	"orders":   true,
	"":         true,
	"standard": true,
}

// DefaultConfig returns the built-in vocabulary. The Finnish entries
// cover the localized status texts the host system emits.
func DefaultConfig() Config {
	return Config{
		CompletedStatuses: []string{
			"PC", "COMPLETED", "PICKED", "CANCELLED", "DELIVERED", "HANDED OVER",
			"VALMIS", "NOUDETTU", "TOIMITETTU", "PERUTTU", "LUOVUTETTU",
			"LASKUTETTU", "ARCHIVED", "ARKISTOITU", "DONE",
		},
		CollectKeywords:  []string{"collect", "pickup", "pick-up", "store", "click & collect"},
		CollectCodes:     []string{"collect", "pickup", "zcs", "c&c", "cac", "cas"},
		ShippingKeywords: []string{"home delivery", "ship", "hd", "home"},
		WoltKeywords: []string{
			"express delivery", "express", "ad-hoc", "adhoc", "fast", "wolt",
			"pikatilaus", "pikatoimitus", "same day", "sameday", "nopea",
			"quick", "rapid", "instant",
		},
		WoltCodes: []string{"express", "adhoc", "fast", "wolt", "exp", "sd", "pike", "quick", "rapid"},
	}
}

// Classify decides the channel for one order row. Exactly one of
// {Collect, Wolt, Excluded, Neither} holds for any input. Wolt matches
// take priority over Collect matches; a shipping keyword in the type
// text vetoes Collect even when a collect keyword also matched.
func Classify(typeText, typeCode, status string, cfg Config) Channel {
	if IsCompletedStatus(status, cfg) {
		return Excluded
	}

	text := strings.ToLower(strings.TrimSpace(typeText))
	code := strings.ToLower(strings.TrimSpace(typeCode))

	if containsAny(text, cfg.WoltKeywords) || containsAny(code, cfg.WoltCodes) {
		return Wolt
	}

	if genericTypeLabels[text] {
		return Neither
	}
	hasCollect := containsAny(text, cfg.CollectKeywords) || containsAny(code, cfg.CollectCodes)
	if hasCollect && !containsAny(text, cfg.ShippingKeywords) {
		return Collect
	}

	return Neither
}

// IsCompletedStatus reports whether a status marks an order as no longer
// pending. An empty status is treated as completed: the host page leaves
// the status blank once an order drops out of the pending queue.
func IsCompletedStatus(status string, cfg Config) bool {
	norm := strings.ToUpper(strings.TrimSpace(status))
	if norm == "" {
		return true
	}
	for _, s := range cfg.CompletedStatuses {
		if norm == s || strings.Contains(norm, s) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}
