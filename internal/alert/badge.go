package alert

import "strconv"

// Badge colors match the UI surfaces: red when both channels have
// pending orders, Wolt blue when only Wolt does, green otherwise.
const (
	ColorBoth     = "#E74C3C"
	ColorWoltOnly = "#00B2E3"
	ColorDefault  = "#27AE60"
)

// Badge is the derived toolbar summary: total pending count and a
// tri-state color. Purely derived, never fed back into reconciliation.
type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color"`
	Total int    `json:"total"`
}

// BadgeFor derives the badge from the accepted per-channel counts. The
// text is empty at zero so the badge disappears.
func BadgeFor(collectCount, woltCount int) Badge {
	total := collectCount + woltCount
	b := Badge{Total: total, Color: ColorDefault}
	if total > 0 {
		b.Text = strconv.Itoa(total)
	}
	switch {
	case collectCount > 0 && woltCount > 0:
		b.Color = ColorBoth
	case woltCount > 0:
		b.Color = ColorWoltOnly
	}
	return b
}
