package engine

import (
	"fmt"
	"math"
	"strconv"
)

// FilterTable maps an expression class to its brightness/contrast pair.
type FilterTable map[Expression]Filter

// IdentityFilter leaves the image untouched.
var IdentityFilter = Filter{Brightness: 1, Contrast: 1}

// DefaultFilters returns the built-in filter table.
func DefaultFilters() FilterTable {
	return FilterTable{
		ExpressionNeutral:   IdentityFilter,
		ExpressionHappy:     {Brightness: 1.10, Contrast: 1.05},
		ExpressionSurprised: {Brightness: 1.05, Contrast: 1.15},
		ExpressionTalking:   {Brightness: 1.00, Contrast: 1.02},
	}
}

// Lookup returns the filter for e, or identity when the table has no entry.
func (t FilterTable) Lookup(e Expression) Filter {
	if f, ok := t[e]; ok {
		return f
	}
	return IdentityFilter
}

// CSS renders the filter as a CSS filter value.
func (f Filter) CSS() string {
	return "brightness(" + formatFloat(f.Brightness) + ") contrast(" + formatFloat(f.Contrast) + ")"
}

// CSS renders the clip as a CSS clip-path value.
func (c MouthClip) CSS() string {
	if !c.Enabled {
		return "none"
	}
	return fmt.Sprintf("ellipse(%s%% %s%% at 50%% %s%%)",
		formatFloat(c.RadiusX), formatFloat(c.RadiusY), formatFloat(c.CenterY))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
