package master

import (
	"fixflow/bizerror"
	"fixflow/idgen"
	"fixflow/persistence"
	"fixflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	masterIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreatePlantFunc = CreatePlant
	QueryPlantsFunc = QueryPlants
	UpdatePlantFunc = UpdatePlant
	DeletePlantFunc = DeletePlant

	CreateShopFunc = CreateShop
	QueryShopsFunc = QueryShops
	UpdateShopFunc = UpdateShop
	DeleteShopFunc = DeleteShop

	CreateLineFunc = CreateLine
	QueryLinesFunc = QueryLines
	UpdateLineFunc = UpdateLine
	DeleteLineFunc = DeleteLine

	CreateMachineFunc = CreateMachine
	QueryMachinesFunc = QueryMachines
	UpdateMachineFunc = UpdateMachine
	DeleteMachineFunc = DeleteMachine

	CreateProjectFunc = CreateProject
	QueryProjectsFunc = QueryProjects
	UpdateProjectFunc = UpdateProject
	DeleteProjectFunc = DeleteProject
)

func create(record interface{}) error {
	if err := persistence.ActiveDataSourceManager.GormDB().Create(record).Error; err != nil {
		if persistence.IsDuplicateEntryError(err) {
			return bizerror.ErrConflict
		}
		return err
	}
	return nil
}

func update(model interface{}, id types.ID, changes map[string]interface{}) error {
	db := persistence.ActiveDataSourceManager.GormDB().Model(model).Where("id = ?", id).Update(changes)
	if db.Error != nil {
		if persistence.IsDuplicateEntryError(db.Error) {
			return bizerror.ErrConflict
		}
		return db.Error
	}
	if db.RowsAffected == 0 {
		return bizerror.ErrNotFound
	}
	nameCache.Flush()
	return nil
}

// deleteAndOrphan removes the record and nulls the parent reference on its
// children in the same transaction.
func deleteAndOrphan(model interface{}, id types.ID, childModel interface{}, childColumn string) error {
	defer nameCache.Flush()
	return persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		db := tx.Delete(model, "id = ?", id)
		if db.Error != nil {
			return db.Error
		}
		if db.RowsAffected == 0 {
			return bizerror.ErrNotFound
		}
		if childModel != nil {
			if err := tx.Model(childModel).Where(childColumn+" = ?", id).
				Update(childColumn, nil).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func CreatePlant(c PlantCreation, sec *session.Session) (*Plant, error) {
	r := Plant{ID: idgen.NextID(masterIdWorker), Name: c.Name}
	if err := create(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func QueryPlants(sec *session.Session) ([]Plant, error) {
	records := []Plant{}
	if err := persistence.ActiveDataSourceManager.GormDB().Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func UpdatePlant(id types.ID, c PlantCreation, sec *session.Session) error {
	return update(&Plant{}, id, map[string]interface{}{"name": c.Name})
}

func DeletePlant(id types.ID, sec *session.Session) error {
	return deleteAndOrphan(Plant{}, id, &Shop{}, "plant_id")
}

func CreateShop(c ShopCreation, sec *session.Session) (*Shop, error) {
	plantId := c.PlantID
	r := Shop{ID: idgen.NextID(masterIdWorker), Name: c.Name, PlantID: &plantId}
	if err := create(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func QueryShops(sec *session.Session) ([]Shop, error) {
	records := []Shop{}
	if err := persistence.ActiveDataSourceManager.GormDB().Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func UpdateShop(id types.ID, c ShopCreation, sec *session.Session) error {
	return update(&Shop{}, id, map[string]interface{}{"name": c.Name, "plant_id": c.PlantID})
}

func DeleteShop(id types.ID, sec *session.Session) error {
	return deleteAndOrphan(Shop{}, id, &Line{}, "shop_id")
}

func CreateLine(c LineCreation, sec *session.Session) (*Line, error) {
	shopId := c.ShopID
	r := Line{ID: idgen.NextID(masterIdWorker), Name: c.Name, ShopID: &shopId}
	if err := create(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func QueryLines(sec *session.Session) ([]Line, error) {
	records := []Line{}
	if err := persistence.ActiveDataSourceManager.GormDB().Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func UpdateLine(id types.ID, c LineCreation, sec *session.Session) error {
	return update(&Line{}, id, map[string]interface{}{"name": c.Name, "shop_id": c.ShopID})
}

func DeleteLine(id types.ID, sec *session.Session) error {
	return deleteAndOrphan(Line{}, id, &Machine{}, "line_id")
}

func CreateMachine(c MachineCreation, sec *session.Session) (*Machine, error) {
	lineId := c.LineID
	r := Machine{ID: idgen.NextID(masterIdWorker), Name: c.Name, LineID: &lineId}
	if err := create(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func QueryMachines(sec *session.Session) ([]Machine, error) {
	records := []Machine{}
	if err := persistence.ActiveDataSourceManager.GormDB().Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func UpdateMachine(id types.ID, c MachineCreation, sec *session.Session) error {
	return update(&Machine{}, id, map[string]interface{}{"name": c.Name, "line_id": c.LineID})
}

func DeleteMachine(id types.ID, sec *session.Session) error {
	return deleteAndOrphan(Machine{}, id, nil, "")
}

func CreateProject(c ProjectCreation, sec *session.Session) (*Project, error) {
	r := Project{ID: idgen.NextID(masterIdWorker), Name: c.Name}
	if err := create(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func QueryProjects(sec *session.Session) ([]Project, error) {
	records := []Project{}
	if err := persistence.ActiveDataSourceManager.GormDB().Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func UpdateProject(id types.ID, c ProjectCreation, sec *session.Session) error {
	return update(&Project{}, id, map[string]interface{}{"name": c.Name})
}

func DeleteProject(id types.ID, sec *session.Session) error {
	return deleteAndOrphan(Project{}, id, nil, "")
}
