package catalog

// Facet is one selectable filter value.
type Facet struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Definitions lists the filter facets the storefront offers.
type Definitions struct {
	Technique []Facet `json:"technique"`
	Placement []Facet `json:"placement"`
	Color     []Facet `json:"color"`
	Sizes     []Facet `json:"sizes"`
}

// FilterDefinitions returns the fixed facet lists. Ids are Printful's own.
func FilterDefinitions() Definitions {
	return Definitions{
		Technique: []Facet{
			{"cut-sew", "Cut & sew sublimation"},
			{"dtfilm", "DTF printing"},
			{"dtg", "DTG printing"},
			{"embroidery", "Embroidery"},
		},
		Placement: []Facet{
			{"front", "Front"},
			{"back", "Back"},
			{"sleeve_left", "Left sleeve"},
			{"sleeve_right", "Right sleeve"},
			{"label_inside", "Inside label"},
			{"label_outside", "Outside label"},
		},
		Color: []Facet{
			{"black", "Black"},
			{"white", "White"},
			{"heather_gray", "Heather Gray"},
			{"gray", "Gray"},
			{"navy", "Navy"},
			{"royal_blue", "Royal Blue"},
			{"blue", "Blue"},
			{"red", "Red"},
			{"maroon", "Maroon"},
			{"burgundy", "Burgundy"},
			{"pink", "Pink"},
			{"orange", "Orange"},
			{"yellow", "Yellow"},
			{"gold", "Gold"},
			{"green", "Green"},
			{"forest", "Forest"},
			{"olive", "Olive"},
			{"purple", "Purple"},
			{"brown", "Brown"},
			{"khaki", "Khaki"},
			{"tan", "Tan"},
			{"cream", "Cream"},
			{"charcoal", "Charcoal"},
			{"silver", "Silver"},
		},
		Sizes: []Facet{
			{"2XS", "2XS"},
			{"XS", "XS"},
			{"S", "S"},
			{"M", "M"},
			{"L", "L"},
			{"XL", "XL"},
			{"2XL", "2XL"},
			{"3XL", "3XL"},
			{"4XL", "4XL"},
			{"5XL", "5XL"},
		},
	}
}
