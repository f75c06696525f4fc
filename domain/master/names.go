package master

import (
	"fixflow/persistence"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/patrickmn/go-cache"
)

// nameCache shortcuts the per-ticket master name joins in the ticket read model.
var nameCache = cache.New(time.Minute, 5*time.Minute)

type nameRecord struct {
	ID   types.ID
	Name string
}

func namesOf(table string, ids []types.ID) (map[types.ID]string, error) {
	result := map[types.ID]string{}
	missed := []types.ID{}
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if name, found := nameCache.Get(table + "/" + id.String()); found {
			result[id] = name.(string)
		} else {
			missed = append(missed, id)
		}
	}
	if len(missed) == 0 {
		return result, nil
	}

	records := []nameRecord{}
	db := persistence.ActiveDataSourceManager.GormDB()
	if err := db.Table(table).Where("id IN (?)", missed).Scan(&records).Error; err != nil {
		return nil, err
	}
	for _, r := range records {
		result[r.ID] = r.Name
		nameCache.Set(table+"/"+r.ID.String(), r.Name, cache.DefaultExpiration)
	}
	return result, nil
}

func ProjectNames(ids []types.ID) (map[types.ID]string, error) {
	return namesOf("projects", ids)
}

func PlantNames(ids []types.ID) (map[types.ID]string, error) {
	return namesOf("plants", ids)
}

func ShopNames(ids []types.ID) (map[types.ID]string, error) {
	return namesOf("shops", ids)
}

func LineNames(ids []types.ID) (map[types.ID]string, error) {
	return namesOf("lines", ids)
}
