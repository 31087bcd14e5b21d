// Package mcc resolves merchant names to merchant category codes and
// spending categories.
package mcc

import "sort"

// entry describes one known merchant category code.
type entry struct {
	Category    string
	SubCategory string
}

// codeTable is the built-in MCC subset covering common consumer spend.
var codeTable = map[string]entry{
	"5411": {Category: "Groceries", SubCategory: "Supermarkets"},
	"5422": {Category: "Groceries", SubCategory: "Meat & Seafood"},
	"5441": {Category: "Groceries", SubCategory: "Confectionery"},
	"5451": {Category: "Groceries", SubCategory: "Dairy"},
	"5462": {Category: "Groceries", SubCategory: "Bakeries"},
	"5812": {Category: "Dining", SubCategory: "Restaurants"},
	"5813": {Category: "Dining", SubCategory: "Bars"},
	"5814": {Category: "Dining", SubCategory: "Fast Food"},
	"5541": {Category: "Fuel", SubCategory: "Service Stations"},
	"5542": {Category: "Fuel", SubCategory: "Automated Fuel"},
	"4111": {Category: "Transit", SubCategory: "Local Commuter"},
	"4121": {Category: "Transit", SubCategory: "Taxis & Rideshare"},
	"4511": {Category: "Travel", SubCategory: "Airlines"},
	"4722": {Category: "Travel", SubCategory: "Travel Agencies"},
	"7011": {Category: "Travel", SubCategory: "Lodging"},
	"5912": {Category: "Drugstores", SubCategory: "Pharmacies"},
	"8011": {Category: "Healthcare", SubCategory: "Physicians"},
	"8062": {Category: "Healthcare", SubCategory: "Hospitals"},
	"4814": {Category: "Utilities", SubCategory: "Telecom"},
	"4899": {Category: "Utilities", SubCategory: "Cable & Streaming"},
	"4900": {Category: "Utilities", SubCategory: "Electric & Water"},
	"5651": {Category: "Shopping", SubCategory: "Clothing"},
	"5691": {Category: "Shopping", SubCategory: "Apparel"},
	"5732": {Category: "Shopping", SubCategory: "Electronics"},
	"5942": {Category: "Shopping", SubCategory: "Books"},
	"5964": {Category: "Online Shopping", SubCategory: "Mail Order"},
	"5969": {Category: "Online Shopping", SubCategory: "Direct Marketing"},
	"7832": {Category: "Entertainment", SubCategory: "Cinemas"},
	"7922": {Category: "Entertainment", SubCategory: "Live Events"},
	"7996": {Category: "Entertainment", SubCategory: "Amusement Parks"},
	"5815": {Category: "Entertainment", SubCategory: "Digital Media"},
	"8299": {Category: "Education", SubCategory: "Schools"},
	"6300": {Category: "Insurance", SubCategory: "Premiums"},
	"6011": {Category: "Cash", SubCategory: "ATM"},
}

// keywordTable maps merchant-name fragments to MCC codes for merchants
// the statement text identifies by brand rather than code.
var keywordTable = map[string]string{
	"starbucks":   "5814",
	"mcdonald":    "5814",
	"subway":      "5814",
	"dunkin":      "5814",
	"chipotle":    "5814",
	"uber eats":   "5812",
	"doordash":    "5812",
	"grubhub":     "5812",
	"whole foods": "5411",
	"safeway":     "5411",
	"kroger":      "5411",
	"trader joe":  "5411",
	"aldi":        "5411",
	"walmart":     "5411",
	"costco":      "5411",
	"shell":       "5541",
	"chevron":     "5541",
	"exxon":       "5541",
	"bp ":         "5541",
	"uber":        "4121",
	"lyft":        "4121",
	"amtrak":      "4111",
	"delta":       "4511",
	"united air":  "4511",
	"southwest":   "4511",
	"marriott":    "7011",
	"hilton":      "7011",
	"airbnb":      "7011",
	"cvs":         "5912",
	"walgreens":   "5912",
	"rite aid":    "5912",
	"netflix":     "4899",
	"spotify":     "5815",
	"hulu":        "4899",
	"comcast":     "4814",
	"verizon":     "4814",
	"at&t":        "4814",
	"t-mobile":    "4814",
	"amazon":      "5964",
	"ebay":        "5969",
	"etsy":        "5969",
	"target":      "5411",
	"best buy":    "5732",
	"apple.com":   "5732",
	"amc":         "7832",
	"ticketmaster": "7922",
}

// keywordOrder fixes the match order for keywordTable: longest fragment
// first, lexical on ties. Overlapping fragments ("uber eats" vs "uber")
// must resolve the same way on every run.
var keywordOrder = func() []string {
	fragments := make([]string, 0, len(keywordTable))
	for fragment := range keywordTable {
		fragments = append(fragments, fragment)
	}
	sort.Slice(fragments, func(i, j int) bool {
		if len(fragments[i]) != len(fragments[j]) {
			return len(fragments[i]) > len(fragments[j])
		}
		return fragments[i] < fragments[j]
	})
	return fragments
}()

// lookup returns the table entry for a code, if known.
func lookup(code string) (entry, bool) {
	e, ok := codeTable[code]
	return e, ok
}
