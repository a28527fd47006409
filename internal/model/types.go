// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
)

// Category is the kind of item a wish produced.
type Category int

// Stored category codes. The values are persisted and must not change.
const (
	CategoryWeapon    Category = 1
	CategoryCharacter Category = 2
)

var categoryNames = map[Category]string{
	CategoryWeapon:    "WEAPON",
	CategoryCharacter: "CHARACTER",
}

// String returns the upper-case category tag.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Label returns the display label used in history listings.
func (c Category) Label() string {
	if c == CategoryCharacter {
		return "Character"
	}
	return "Weapon"
}

// DecodeCategory maps a stored code back to a Category.
func DecodeCategory(code int) (Category, error) {
	c := Category(code)
	if _, ok := categoryNames[c]; !ok {
		return 0, fmt.Errorf("unknown category code %d", code)
	}
	return c, nil
}

// ParseCategoryTag maps an upper-case tag such as "CHARACTER" to a Category.
func ParseCategoryTag(tag string) (Category, error) {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "CHARACTER":
		return CategoryCharacter, nil
	case "WEAPON":
		return CategoryWeapon, nil
	}
	return 0, fmt.Errorf("unknown category tag %q", tag)
}

// CategoryFromItemType maps the remote item_type label. Anything that is not
// "Character" counts as a weapon.
func CategoryFromItemType(itemType string) Category {
	if itemType == "Character" {
		return CategoryCharacter
	}
	return CategoryWeapon
}

// BannerType identifies a wish channel.
type BannerType struct {
	ID   int64
	Name string
}

// Wish is one reward issued by a banner. (ID, UID) is unique.
type Wish struct {
	ID         int64
	UID        int64
	BannerType int64
	Category   Category
	Rarity     int
	Time       string
	Name       string
}

// Credentials carries the session values needed to query the remote history.
type Credentials struct {
	Region string
	Token  string
}

// Complete reports whether both region and token are set.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.Region) != "" && strings.TrimSpace(c.Token) != ""
}
