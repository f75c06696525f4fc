package master

import (
	"github.com/fundwit/go-commons/types"
)

// master data hierarchy: Plant > Shop > Line > Machine, Project stands alone.
// A child keeps a nullable reference to its parent, deleting the parent
// orphans the child instead of cascading.

type Plant struct {
	ID   types.ID `json:"id" gorm:"primary_key"`
	Name string   `json:"name" gorm:"unique_index:uni_plant_name"`
}

type Shop struct {
	ID      types.ID  `json:"id" gorm:"primary_key"`
	Name    string    `json:"name" gorm:"unique_index:uni_shop_name"`
	PlantID *types.ID `json:"plantId"`
}

type Line struct {
	ID     types.ID  `json:"id" gorm:"primary_key"`
	Name   string    `json:"name" gorm:"unique_index:uni_line_name"`
	ShopID *types.ID `json:"shopId"`
}

type Machine struct {
	ID     types.ID  `json:"id" gorm:"primary_key"`
	Name   string    `json:"name" gorm:"unique_index:uni_machine_name"`
	LineID *types.ID `json:"lineId"`
}

type Project struct {
	ID   types.ID `json:"id" gorm:"primary_key"`
	Name string   `json:"name" gorm:"unique_index:uni_project_name"`
}

type PlantCreation struct {
	Name string `json:"name" binding:"required,lte=255"`
}

type ShopCreation struct {
	Name    string   `json:"name" binding:"required,lte=255"`
	PlantID types.ID `json:"plantId" binding:"required"`
}

type LineCreation struct {
	Name   string   `json:"name" binding:"required,lte=255"`
	ShopID types.ID `json:"shopId" binding:"required"`
}

type MachineCreation struct {
	Name   string   `json:"name" binding:"required,lte=255"`
	LineID types.ID `json:"lineId" binding:"required"`
}

type ProjectCreation struct {
	Name string `json:"name" binding:"required,lte=255"`
}
