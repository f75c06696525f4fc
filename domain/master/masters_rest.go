package master

import (
	"fixflow/bizerror"
	"fixflow/session"
	"net/http"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var PathMaster = "/v1/master"

func RegisterMasterRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathMaster, middleWares...)

	g.POST("/plants", handleCreatePlant)
	g.GET("/plants", handleQueryPlants)
	g.PUT("/plants/:id", handleUpdatePlant)
	g.DELETE("/plants/:id", handleDeletePlant)

	g.POST("/shops", handleCreateShop)
	g.GET("/shops", handleQueryShops)
	g.PUT("/shops/:id", handleUpdateShop)
	g.DELETE("/shops/:id", handleDeleteShop)

	g.POST("/lines", handleCreateLine)
	g.GET("/lines", handleQueryLines)
	g.PUT("/lines/:id", handleUpdateLine)
	g.DELETE("/lines/:id", handleDeleteLine)

	g.POST("/machines", handleCreateMachine)
	g.GET("/machines", handleQueryMachines)
	g.PUT("/machines/:id", handleUpdateMachine)
	g.DELETE("/machines/:id", handleDeleteMachine)

	g.POST("/projects", handleCreateProject)
	g.GET("/projects", handleQueryProjects)
	g.PUT("/projects/:id", handleUpdateProject)
	g.DELETE("/projects/:id", handleDeleteProject)
}

func pathID(c *gin.Context) types.ID {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	return id
}

func handleCreatePlant(c *gin.Context) {
	creation := PlantCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreatePlantFunc(creation, session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

func handleQueryPlants(c *gin.Context) {
	records, err := QueryPlantsFunc(session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleUpdatePlant(c *gin.Context) {
	id := pathID(c)
	creation := PlantCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := UpdatePlantFunc(id, creation, session.FindSession(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleDeletePlant(c *gin.Context) {
	if err := DeletePlantFunc(pathID(c), session.FindSession(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleCreateShop(c *gin.Context) {
	creation := ShopCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateShopFunc(creation, session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

func handleQueryShops(c *gin.Context) {
	records, err := QueryShopsFunc(session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleUpdateShop(c *gin.Context) {
	id := pathID(c)
	creation := ShopCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := UpdateShopFunc(id, creation, session.FindSession(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleDeleteShop(c *gin.Context) {
	if err := DeleteShopFunc(pathID(c), session.FindSession(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleCreateLine(c *gin.Context) {
	creation := LineCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateLineFunc(creation, session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

func handleQueryLines(c *gin.Context) {
	records, err := QueryLinesFunc(session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleUpdateLine(c *gin.Context) {
	id := pathID(c)
	creation := LineCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := UpdateLineFunc(id, creation, session.FindSession(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleDeleteLine(c *gin.Context) {
	if err := DeleteLineFunc(pathID(c), session.FindSession(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleCreateMachine(c *gin.Context) {
	creation := MachineCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateMachineFunc(creation, session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

func handleQueryMachines(c *gin.Context) {
	records, err := QueryMachinesFunc(session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleUpdateMachine(c *gin.Context) {
	id := pathID(c)
	creation := MachineCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := UpdateMachineFunc(id, creation, session.FindSession(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleDeleteMachine(c *gin.Context) {
	if err := DeleteMachineFunc(pathID(c), session.FindSession(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleCreateProject(c *gin.Context) {
	creation := ProjectCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateProjectFunc(creation, session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

func handleQueryProjects(c *gin.Context) {
	records, err := QueryProjectsFunc(session.FindSession(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleUpdateProject(c *gin.Context) {
	id := pathID(c)
	creation := ProjectCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := UpdateProjectFunc(id, creation, session.FindSession(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleDeleteProject(c *gin.Context) {
	if err := DeleteProjectFunc(pathID(c), session.FindSession(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}
