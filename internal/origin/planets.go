package origin

// element is a value at J2000 and its rate per Julian century.
type element struct {
	at, rate float64
}

func (e element) eval(tCen float64) float64 { return e.at + e.rate*tCen }

// planet holds mean elements (AU, degrees) from the long-interval table of
// Standish, "Keplerian Elements for Approximate Positions of the Major
// Planets", valid 3000 BC to 3000 AD.
type planet struct {
	name string
	// massRatio is M_sun / M_planet.
	massRatio float64

	a, e, inc, meanLong, longPeri, node element

	// Extra mean anomaly terms b T^2 + c cos(fT) + s sin(fT) for the giants.
	b, c, s, f float64
}

var planets = []planet{
	{
		name: "mercury", massRatio: 6023600,
		a: element{0.38709843, 0}, e: element{0.20563661, 0.00002123},
		inc: element{7.00559432, -0.00590158}, meanLong: element{252.25166724, 149472.67486623},
		longPeri: element{77.45771895, 0.15940013}, node: element{48.33961819, -0.12214182},
	},
	{
		name: "venus", massRatio: 408523.71,
		a: element{0.72332102, -0.00000026}, e: element{0.00676399, -0.00005107},
		inc: element{3.39777545, 0.00043494}, meanLong: element{181.97970850, 58517.81560260},
		longPeri: element{131.76755713, 0.05679648}, node: element{76.67261496, -0.27274174},
	},
	{
		name: "earth-moon", massRatio: 328900.56,
		a: element{1.00000018, -0.00000003}, e: element{0.01673163, -0.00003661},
		inc: element{-0.00054346, -0.01337178}, meanLong: element{100.46691572, 35999.37306329},
		longPeri: element{102.93005885, 0.31795260}, node: element{-5.11260389, -0.24123856},
	},
	{
		name: "mars", massRatio: 3098708,
		a: element{1.52371243, 0.00000097}, e: element{0.09336511, 0.00009149},
		inc: element{1.85181869, -0.00724757}, meanLong: element{-4.56813164, 19140.29934243},
		longPeri: element{-23.91744784, 0.45223625}, node: element{49.71320984, -0.26852431},
	},
	{
		name: "jupiter", massRatio: 1047.3486,
		a: element{5.20248019, -0.00002864}, e: element{0.04853590, 0.00018026},
		inc: element{1.29861416, -0.00322699}, meanLong: element{34.33479152, 3034.90371757},
		longPeri: element{14.27495244, 0.18199196}, node: element{100.29282654, 0.13024619},
		b: -0.00012452, c: 0.06064060, s: -0.35635438, f: 38.35125000,
	},
	{
		name: "saturn", massRatio: 3497.898,
		a: element{9.54149883, -0.00003065}, e: element{0.05550825, -0.00032044},
		inc: element{2.49424102, 0.00451969}, meanLong: element{50.07571329, 1222.11494724},
		longPeri: element{92.86136063, 0.54179478}, node: element{113.63998702, -0.25015002},
		b: 0.00025899, c: -0.13434469, s: 0.87320147, f: 38.35125000,
	},
	{
		name: "uranus", massRatio: 22902.98,
		a: element{19.18797948, -0.00020455}, e: element{0.04685740, -0.00001550},
		inc: element{0.77298127, -0.00180155}, meanLong: element{314.20276625, 428.49512595},
		longPeri: element{172.43404441, 0.09266985}, node: element{73.96250215, 0.05739699},
		b: 0.00058331, c: -0.97731848, s: 0.17689245, f: 7.67025000,
	},
	{
		name: "neptune", massRatio: 19412.24,
		a: element{30.06952752, 0.00006447}, e: element{0.00895439, 0.00000818},
		inc: element{1.77005520, 0.00022400}, meanLong: element{304.22289287, 218.46515314},
		longPeri: element{46.68158724, 0.01009938}, node: element{131.78635853, -0.00606302},
		b: -0.00041348, c: 0.68346318, s: -0.10162547, f: 7.67025000,
	},
}
