package main

// testLocation is one named coordinate in the bundled validation set.
type testLocation struct {
	Name string
	Lat  float64
	Lon  float64
}

// testLocations is the fixed set of named coordinates `validate`
// checks against the artifact. It mixes major cities (should resolve
// to bright zones), recognized dark-sky sites (should resolve to dark
// zones or be absent if below the Zone 2 threshold), and geographically
// remote points that exercise the domain edges near the poles and the
// antimeridian.
var testLocations = []testLocation{
	// Major cities.
	{"New York, USA", 40.7128, -74.0060},
	{"London, UK", 51.5074, -0.1278},
	{"Tokyo, Japan", 35.6762, 139.6503},
	{"Sydney, Australia", -33.8688, 151.2093},
	{"Paris, France", 48.8566, 2.3522},
	{"Berlin, Germany", 52.5200, 13.4050},
	{"Mumbai, India", 19.0760, 72.8777},
	{"Sao Paulo, Brazil", -23.5505, -46.6333},
	{"Cairo, Egypt", 30.0444, 31.2357},
	{"Cape Town, South Africa", -33.9249, 18.4241},
	{"Moscow, Russia", 55.7558, 37.6173},
	{"Beijing, China", 39.9042, 116.4074},
	{"Mexico City, Mexico", 19.4326, -99.1332},
	{"Lagos, Nigeria", 6.5244, 3.3792},
	{"Jakarta, Indonesia", -6.2088, 106.8456},
	{"Seoul, South Korea", 37.5665, 126.9780},
	{"Istanbul, Turkey", 41.0082, 28.9784},
	{"Buenos Aires, Argentina", -34.6037, -58.3816},
	{"Toronto, Canada", 43.6532, -79.3832},
	{"Dubai, UAE", 25.2048, 55.2708},
	{"Bangkok, Thailand", 13.7563, 100.5018},
	{"Madrid, Spain", 40.4168, -3.7038},
	{"Rome, Italy", 41.9028, 12.4964},
	{"Nairobi, Kenya", -1.2921, 36.8219},
	{"Los Angeles, USA", 34.0522, -118.2437},

	// Dark-sky locations.
	{"Death Valley, USA", 36.5054, -117.0794},
	{"Atacama Desert, Chile", -24.5000, -69.2500},
	{"Teide, Canary Islands", 28.2916, -16.5094},
	{"Mauna Kea, Hawaii", 19.8208, -155.4681},
	{"Namib Desert, Namibia", -24.7500, 15.5000},
	{"Aoraki Mackenzie, NZ", -43.9500, 170.1000},
	{"Kiruna, Sweden", 67.8558, 20.2253},
	{"Galloway Forest, Scotland", 55.1000, -4.4500},
	{"NamibRand Nature Reserve", -25.0000, 16.0000},
	{"La Palma, Canary Islands", 28.7500, -17.8900},

	// Remote areas.
	{"Antarctica McMurdo", -77.8419, 166.6863},
	{"Greenland Nuuk", 64.1836, -51.7214},
	{"Sahara Desert", 23.4162, 25.6628},
	{"Gobi Desert, Mongolia", 42.5000, 103.5000},
	{"Outback, Australia", -25.0000, 134.0000},
	{"Siberian Tundra", 66.0000, 100.0000},
	{"Amazon Basin, Brazil", -3.4653, -62.2159},
	{"Patagonia, Argentina", -49.3000, -72.9000},
	{"Tibetan Plateau", 32.0000, 88.0000},
	{"Kalahari Desert", -23.0000, 21.8000},

	// Edge cases: poles, antimeridian, small/remote islands.
	{"Reykjavik, Iceland", 64.1466, -21.9426},
	{"Singapore", 1.3521, 103.8198},
	{"Wellington, NZ", -41.2865, 174.7762},
	{"Anchorage, Alaska", 61.2181, -149.9003},
	{"Ushuaia, Argentina", -54.8019, -68.3030},
	{"Suva, Fiji", -18.1248, 178.4501},
	{"Nuku'alofa, Tonga", -21.1393, -175.2049},
	{"Longyearbyen, Svalbard", 78.2232, 15.6267},
	{"Punta Arenas, Chile", -53.1638, -70.9171},
	{"Norilsk, Russia", 69.3558, 88.1893},

	// Additional world cities for coverage breadth.
	{"Lima, Peru", -12.0464, -77.0428},
	{"Bogota, Colombia", 4.7110, -74.0721},
	{"Santiago, Chile", -33.4489, -70.6693},
	{"Johannesburg, South Africa", -26.2041, 28.0473},
	{"Manila, Philippines", 14.5995, 120.9842},
	{"Karachi, Pakistan", 24.8607, 67.0011},
	{"Dhaka, Bangladesh", 23.8103, 90.4125},
	{"Tehran, Iran", 35.6892, 51.3890},
	{"Riyadh, Saudi Arabia", 24.7136, 46.6753},
	{"Hanoi, Vietnam", 21.0278, 105.8342},
	{"Kuala Lumpur, Malaysia", 3.1390, 101.6869},
	{"Accra, Ghana", 5.6037, -0.1870},
	{"Addis Ababa, Ethiopia", 9.0250, 38.7469},
	{"Helsinki, Finland", 60.1699, 24.9384},
	{"Vienna, Austria", 48.2082, 16.3738},
}
