package pricing

// Rate is the base pricing for one service category. PerHour scales the
// base with duration at settlement time; estimates assume StandardHours.
type Rate struct {
	Base          float64
	PerHour       float64
	StandardHours float64
}

// ratesMap holds the category base rates (default currency INR).
var ratesMap = map[string]Rate{
	"Cleaning":    {Base: 399, PerHour: 150, StandardHours: 2},
	"Plumbing":    {Base: 299, PerHour: 250, StandardHours: 1},
	"Electrician": {Base: 249, PerHour: 250, StandardHours: 1},
	"Painting":    {Base: 999, PerHour: 200, StandardHours: 4},
	"Carpentry":   {Base: 349, PerHour: 220, StandardHours: 1.5},
	"ACRepair":    {Base: 499, PerHour: 300, StandardHours: 1},
	"PestControl": {Base: 799, PerHour: 180, StandardHours: 2},
	"Rentals":     {Base: 599, PerHour: 0, StandardHours: 1},
}

// RateFor returns the category rate and whether the category is known.
func RateFor(category string) (Rate, bool) {
	r, ok := ratesMap[category]
	return r, ok
}

// Categories lists the priceable service categories.
func Categories() []string {
	out := make([]string, 0, len(ratesMap))
	for c := range ratesMap {
		out = append(out, c)
	}
	return out
}
