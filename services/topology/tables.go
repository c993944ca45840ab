package topology

// Names of the regions in logical order.
var Names = [N]string{
	"Zakarpattia", "Ivano-Frankivsk", "Ternopil", "Lviv", "Volyn",
	"Rivne", "Zhytomyr", "Kyiv Oblast", "Chernihiv", "Sumy",
	"Kharkiv", "Luhansk", "Donetsk", "Zaporizhzhia", "Kherson",
	"Crimea", "Odesa", "Mykolaiv", "Dnipropetrovsk", "Poltava",
	"Cherkasy", "Kirovohrad", "Vinnytsia", "Khmelnytskyi", "Chernivtsi",
	"Kyiv",
}

// neighbors lists, per region, the region itself followed by the regions
// sharing a border with it.
var neighbors = [N][]int{
	0:  {0, 1, 3},
	1:  {1, 0, 3, 2, 24},
	2:  {2, 1, 3, 5, 23, 24},
	3:  {3, 0, 1, 2, 4, 5},
	4:  {4, 3, 5},
	5:  {5, 4, 3, 2, 23, 6},
	6:  {6, 5, 23, 22, 7},
	7:  {7, 6, 22, 20, 19, 8, 25},
	8:  {8, 7, 9, 19},
	9:  {9, 8, 19, 10},
	10: {10, 9, 19, 18, 12, 11},
	11: {11, 10, 12},
	12: {12, 11, 10, 18, 13},
	13: {13, 12, 18, 14},
	14: {14, 13, 18, 17, 15},
	15: {15, 14},
	16: {16, 17, 21, 22},
	17: {17, 16, 21, 18, 14},
	18: {18, 19, 10, 12, 13, 14, 17, 21},
	19: {19, 7, 8, 9, 10, 18, 21, 20},
	20: {20, 7, 19, 21, 22},
	21: {21, 20, 19, 18, 17, 16, 22},
	22: {22, 23, 6, 7, 20, 21, 16, 24},
	23: {23, 2, 5, 6, 22, 24},
	24: {24, 1, 2, 23, 22},
	25: {25, 7},
}

// Neighbors returns region and its bordering regions. The slice is shared;
// callers must not modify it.
func Neighbors(region int) []int {
	if !Valid(region) {
		return nil
	}
	return neighbors[region]
}

// Name returns the display name of region or "" when out of range.
func Name(region int) string {
	if !Valid(region) {
		return ""
	}
	return Names[region]
}

// Flag hues.
const (
	FlagBlue   = 180
	FlagYellow = 60
)

// FlagHues paints the national flag: northern regions blue, southern yellow.
var FlagHues = [N]int{
	FlagYellow, FlagYellow, FlagBlue, FlagBlue, FlagBlue,
	FlagBlue, FlagBlue, FlagBlue, FlagBlue, FlagBlue,
	FlagBlue, FlagBlue, FlagYellow, FlagYellow, FlagYellow,
	FlagYellow, FlagYellow, FlagYellow, FlagYellow, FlagBlue,
	FlagYellow, FlagYellow, FlagYellow, FlagBlue, FlagYellow,
	FlagBlue,
}
