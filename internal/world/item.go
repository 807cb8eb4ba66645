package world

// PermanentWear marks an item that never ages.
const PermanentWear uint8 = 255

// Item is a stack of one item kind. Wear counts down with every aging step;
// the item rots away when it reaches zero.
type Item struct {
	ID     uint16
	Number uint16
	Wear   uint8
}

// Empty reports whether the slot holds nothing.
func (it Item) Empty() bool { return it.ID == 0 || it.Number == 0 }

// Age applies one wear step and reports whether the item rotted away.
func (it *Item) Age() bool {
	if it.Empty() || it.Wear == PermanentWear {
		return false
	}
	if it.Wear > 0 {
		it.Wear--
	}
	if it.Wear == 0 {
		*it = Item{}
		return true
	}
	return false
}

// ageItems ages every item in place and drops the rotted ones.
func ageItems(items []Item) ([]Item, int) {
	rotted := 0
	kept := items[:0]
	for i := range items {
		if items[i].Age() {
			rotted++
			continue
		}
		if !items[i].Empty() {
			kept = append(kept, items[i])
		}
	}
	return kept, rotted
}
