package documents

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProductGroup identifies a group of marked goods. The zero value is not a
// valid group.
type ProductGroup int

// Product groups, numbered by their API codes.
const (
	Clothes ProductGroup = iota + 1
	Shoes
	Tobacco
	Perfumery
	Tires
	Electronics
	Pharma
	Milk
	Bicycle
	Wheelchairs
)

var groupNames = [...]string{
	Clothes:     "CLOTHES",
	Shoes:       "SHOES",
	Tobacco:     "TOBACCO",
	Perfumery:   "PERFUMERY",
	Tires:       "TIRES",
	Electronics: "ELECTRONICS",
	Pharma:      "PHARMA",
	Milk:        "MILK",
	Bicycle:     "BICYCLE",
	Wheelchairs: "WHEELCHAIRS",
}

var groupDescriptions = [...]string{
	Clothes:     "Предметы одежды, белье постельное, столовое, туалетное и кухонное",
	Shoes:       "Обувные товары",
	Tobacco:     "Табачная продукция",
	Perfumery:   "Духи и туалетная вода",
	Tires:       "Шины и покрышки пневматические резиновые новые",
	Electronics: "Фотокамеры (кроме кинокамер), фотовспышки и лампы-вспышки",
	Pharma:      "Лекарственные препараты для медицинского применения",
	Milk:        "Молочная продукция",
	Bicycle:     "Велосипеды и велосипедные рамы",
	Wheelchairs: "Кресла-коляски",
}

// ProductGroupByCode returns the group with the given numeric code.
func ProductGroupByCode(code int) (ProductGroup, bool) {
	g := ProductGroup(code)
	return g, g.Valid()
}

// ParseProductGroup accepts a group name in any case.
func ParseProductGroup(s string) (ProductGroup, error) {
	for g := Clothes; g <= Wheelchairs; g++ {
		if strings.EqualFold(groupNames[g], s) {
			return g, nil
		}
	}
	return 0, fmt.Errorf("documents: unknown product group %q", s)
}

// Valid reports whether g is one of the known groups.
func (g ProductGroup) Valid() bool {
	return g >= Clothes && g <= Wheelchairs
}

// Code is the group's numeric code.
func (g ProductGroup) Code() int {
	return int(g)
}

// Name is the upper-case name used in request bodies.
func (g ProductGroup) Name() string {
	if !g.Valid() {
		return ""
	}
	return groupNames[g]
}

// String returns the lower-case name used in the pg query parameter.
func (g ProductGroup) String() string {
	if !g.Valid() {
		return fmt.Sprintf("ProductGroup(%d)", int(g))
	}
	return strings.ToLower(groupNames[g])
}

// Description is the group's human-readable title, empty for an invalid group.
func (g ProductGroup) Description() string {
	if !g.Valid() {
		return ""
	}
	return groupDescriptions[g]
}

// MarshalJSON encodes g as its upper-case name. An invalid group is an error.
func (g ProductGroup) MarshalJSON() ([]byte, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("documents: invalid product group %d", int(g))
	}
	return json.Marshal(groupNames[g])
}

// UnmarshalJSON accepts either the group name or its numeric code.
func (g *ProductGroup) UnmarshalJSON(b []byte) error {
	var code int
	if err := json.Unmarshal(b, &code); err == nil {
		pg, ok := ProductGroupByCode(code)
		if !ok {
			return fmt.Errorf("documents: unknown product group code %d", code)
		}
		*g = pg
		return nil
	}

	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return fmt.Errorf("documents: product group must be a name or a code: %w", err)
	}
	pg, err := ParseProductGroup(name)
	if err != nil {
		return err
	}
	*g = pg
	return nil
}

// DocumentFormat is the encoding of product_document.
type DocumentFormat string

// Document formats.
const (
	FormatManual DocumentFormat = "MANUAL"
	FormatXML    DocumentFormat = "XML"
	FormatCSV    DocumentFormat = "CSV"
)

// DocumentType is the kind of document being created.
type DocumentType string

// Document types for introducing goods, by format.
const (
	TypeIntroduceGoods    DocumentType = "LP_INTRODUCE_GOODS"
	TypeIntroduceGoodsCSV DocumentType = "LP_INTRODUCE_GOODS_CSV"
	TypeIntroduceGoodsXML DocumentType = "LP_INTRODUCE_GOODS_XML"
)
