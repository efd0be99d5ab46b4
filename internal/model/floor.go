package model

// Tables lists every table in the restaurant in floor order.  The order is
// also the tie-break when boards sort reservations sharing a start time.
var Tables = []string{
	"1-T1", "1-T2", "1-T3", "1-T4", "1-T5", "1-T6", "1-T7", "1-T8", "1-T9",
	"1-C1", "1-C4", "1-C5", "1-C8",
	"Record",
	"2-T1", "2-T2", "2-T3", "2-T4", "2-T5", "2-T6",
	"2-C1", "2-C4", "2-C5", "2-C8",
	"2-R1", "2-R2", "2-R3",
}

var tableIndex = func() map[string]int {
	m := make(map[string]int, len(Tables))
	for i, t := range Tables {
		m[t] = i
	}
	return m
}()

// UnknownTableOrder is the sort position of tables outside Tables.
const UnknownTableOrder = 999

// IsTable reports whether name is one of the restaurant's tables.
func IsTable(name string) bool {
	_, ok := tableIndex[name]
	return ok
}

// TableOrder returns the floor position of a table.
func TableOrder(name string) int {
	if i, ok := tableIndex[name]; ok {
		return i
	}
	return UnknownTableOrder
}

// Slots lists the standard seating times.
var Slots = []string{"18:00", "18:30", "20:30", "21:00"}

// MainDish is a selectable dish for the Main course item.
type MainDish struct {
	Name        string      `json:"name"`
	MakingPlace MakingPlace `json:"making_place"`
}

// MainDishes lists the dish options in serialization order.
var MainDishes = []MainDish{
	{Name: "Pasta", MakingPlace: PlaceKitchen},
	{Name: "Pizza", MakingPlace: PlacePizza},
}

// LookupDish returns the dish with the given name.
func LookupDish(name string) (MainDish, bool) {
	for _, d := range MainDishes {
		if d.Name == name {
			return d, true
		}
	}
	return MainDish{}, false
}
