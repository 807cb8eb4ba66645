package data

import (
	"fmt"
	"os"
)

// Weapon is the static definition of a weapon item.
type Weapon struct {
	ItemID uint16 `yaml:"item_id"`
	Name   string `yaml:"name"`
	Range  int    `yaml:"range"`
	Attack int    `yaml:"attack"`
	Type   string `yaml:"type"`
}

type weaponFile struct {
	Weapons []Weapon `yaml:"weapons"`
}

// WeaponTable maps item IDs to weapon definitions. Read-only after load.
type WeaponTable struct {
	weapons map[uint16]*Weapon
}

func LoadWeaponTable(path string) (*WeaponTable, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weapons: %w", err)
	}
	return ParseWeaponTable(doc)
}

func ParseWeaponTable(doc []byte) (*WeaponTable, error) {
	var f weaponFile
	if err := decode("weapons", doc, &f); err != nil {
		return nil, err
	}
	t := &WeaponTable{weapons: make(map[uint16]*Weapon, len(f.Weapons))}
	for i := range f.Weapons {
		w := &f.Weapons[i]
		t.weapons[w.ItemID] = w
	}
	return t, nil
}

func (t *WeaponTable) Exists(id uint16) bool {
	_, ok := t.weapons[id]
	return ok
}

// Get returns the weapon with the given item ID, or nil.
func (t *WeaponTable) Get(id uint16) *Weapon {
	return t.weapons[id]
}

func (t *WeaponTable) Count() int {
	return len(t.weapons)
}
