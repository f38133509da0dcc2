package catalog

// The sixteen Ekiti Local Government Areas jobs are scoped to.
var LGAs = []string{
	"Ado-Ekiti", "Efon", "Ekiti East", "Ekiti West", "Ekiti South-West",
	"Emure", "Gbonyin", "Ido-Osi", "Ijero", "Ikere", "Ikole",
	"Ilejemeje", "Irepodun/Ifelodun", "Ise-Orun", "Moba", "Oye",
}

var JobCategories = []string{
	"Plumbing",
	"Electrical",
	"Masonry",
	"Carpentry",
	"Mechanical",
	"Tailoring",
	"Painting",
	"Tiling",
	"Gardening",
	"Cleaning",
	"AC Repair",
}

func IsValidLGA(lga string) bool {
	for _, l := range LGAs {
		if l == lga {
			return true
		}
	}
	return false
}

func IsValidCategory(category string) bool {
	for _, c := range JobCategories {
		if c == category {
			return true
		}
	}
	return false
}
