package catalogue

import "github.com/greencart/storefront/core"

// fallbackProducts is the bundled static catalogue served when the
// backend is unreachable, keeping product browsing available in a
// degraded mode.
var fallbackProducts = []core.Product{
	{
		ID:           1,
		Slug:         "1-pommes-moches-5-kg",
		Name:         "Pommes moches (5 kg)",
		Price:        6.5,
		Region:       "Ile-de-France",
		Category:     "Fruits",
		Availability: core.AvailabilitySurplus,
		CO2Saved:     2.1,
		DLCDays:      6,
		Unit:         "Colis 5 kg",
		Image:        "https://images.unsplash.com/photo-1576402187878-974f70c890a5?q=80&w=1200&auto=format&fit=crop",
		Description:  "Pommes hors calibre issues d'une recolte locale. Ideales pour compotes, jus et patisseries anti-gaspi.",
	},
	{
		ID:           2,
		Slug:         "2-legumes-varies-b-4-kg",
		Name:         "Legumes varies B (4 kg)",
		Price:        7.9,
		Region:       "Hauts-de-France",
		Category:     "Legumes",
		Availability: core.AvailabilitySurplus,
		CO2Saved:     2.9,
		DLCDays:      4,
		Unit:         "Panier 4 kg",
		Image:        "https://images.unsplash.com/photo-1515542706656-8e6ef17a1521?q=80&w=1200&auto=format&fit=crop",
		Description:  "Panier de legumes biscornus recoltes le matin meme. Varietes adaptees aux soupes et poelees familiales.",
	},
	{
		ID:           3,
		Slug:         "3-yaourts-fermiers-x12",
		Name:         "Yaourts fermiers (x12)",
		Price:        5.5,
		Region:       "Bretagne",
		Category:     "Cremerie",
		Availability: core.AvailabilityNormal,
		CO2Saved:     0.6,
		DLCDays:      3,
		Unit:         "Lot x12",
		Image:        "https://images.unsplash.com/photo-1551024601-bec78aea704b?q=80&w=1200&auto=format&fit=crop",
		Description:  "Yaourts nature au lait entier, texture genereuse. Date courte mais qualite garantie par la ferme.",
	},
	{
		ID:           4,
		Slug:         "4-pains-de-la-veille-x4",
		Name:         "Pains de la veille (x4)",
		Price:        2,
		Region:       "Ile-de-France",
		Category:     "Boulangerie",
		Availability: core.AvailabilitySurplus,
		CO2Saved:     1.2,
		DLCDays:      1,
		Unit:         "Lot x4",
		Image:        "https://images.unsplash.com/photo-1549931319-a545dcf3bc73?q=80&w=1200&auto=format&fit=crop",
		Description:  "Pains tradition de la veille, croustillants apres quelques minutes au four. Emballage compostable.",
	},
	{
		ID:           5,
		Slug:         "5-tomates-irregulieres-3-kg",
		Name:         "Tomates irregulieres (3 kg)",
		Price:        4.9,
		Region:       "Provence-Alpes-Cote d'Azur",
		Category:     "Legumes",
		Availability: core.AvailabilitySurplus,
		CO2Saved:     2.3,
		DLCDays:      5,
		Unit:         "Cagette 3 kg",
		Image:        "https://images.unsplash.com/photo-1567306226416-28f0efdc88ce?q=80&w=1200&auto=format&fit=crop",
		Description:  "Tomates anciennes aux formes originales. Saveur ensoleillee, parfaites en salade ou en sauce.",
	},
	{
		ID:           6,
		Slug:         "6-fromage-de-chevre-demi-sec",
		Name:         "Fromage de chevre demi-sec",
		Price:        3.9,
		Region:       "Auvergne-Rhone-Alpes",
		Category:     "Cremerie",
		Availability: core.AvailabilityNormal,
		CO2Saved:     0.4,
		DLCDays:      10,
		Unit:         "Unite 250 g",
		Image:        "https://images.unsplash.com/photo-1505575972945-2804b5c35f33?q=80&w=1200&auto=format&fit=crop",
		Description:  "Fromage de chevre demi-sec affine 10 jours. Gout franc, lait issu d'un elevage extensif.",
	},
}

// FallbackProducts returns a copy of the bundled catalogue.
func FallbackProducts() []core.Product {
	out := make([]core.Product, len(fallbackProducts))
	copy(out, fallbackProducts)
	return out
}
