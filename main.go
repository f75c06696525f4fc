package main

import (
	"fixflow/account"
	"fixflow/attachment"
	"fixflow/bizerror"
	"fixflow/client/oss"
	"fixflow/domain/master"
	"fixflow/domain/ticket"
	"fixflow/domain/ticket/ticketrest"
	"fixflow/infra/tracing"
	"fixflow/persistence"
	"fixflow/session"
	"fixflow/sessions"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.Infoln("service start")

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		logrus.Fatalf("parse database config failed %v\n", err)
	}

	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			logrus.Fatalf("failed to prepare database %v\n", err)
		}
	}

	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		logrus.Fatalf("database connection failed %v\n", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	err = ds.GormDB().AutoMigrate(
		&account.User{},
		&master.Plant{}, &master.Shop{}, &master.Line{}, &master.Machine{}, &master.Project{},
		&ticket.Ticket{}, &ticket.Comment{}, &ticket.Attachment{}, &ticket.TicketSequence{},
	).Error
	if err != nil {
		logrus.Fatalf("database migration failed %v\n", err)
	}
	if err := ticket.PrepareTicketSequence(ds.GormDB()); err != nil {
		logrus.Fatalf("ticket sequence preparation failed %v\n", err)
	}

	if os.Getenv("OSS_ENDPOINT") != "" {
		store, err := oss.NewBlobStoreFromEnv()
		if err != nil {
			logrus.Fatalf("oss blob store bootstrap failed %v\n", err)
		}
		attachment.ActiveBlobStore = store
	} else {
		attachment.ActiveBlobStore = attachment.NewLocalBlobStore()
	}
	ticket.PurgeTicketFilesFunc = attachment.PurgeTicketFiles

	if tracingCloser := tracing.Bootstrap(); tracingCloser != nil {
		defer tracingCloser.Close()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), bizerror.ErrorHandling(), tracing.TracingIngress())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "fixflow")
	})

	sessions.RegisterSessionsRestAPI(engine)
	ticketrest.RegisterPublicTicketsRestAPI(engine)

	attachment.RegisterUploadsRestAPI(engine, session.TokenAuthFilter())
	account.RegisterUsersRestAPI(engine, session.TokenAuthFilter())
	master.RegisterMasterRestAPI(engine, session.TokenAuthFilter())
	ticketrest.RegisterTicketsRestAPI(engine, session.TokenAuthFilter())

	port := os.Getenv("PORT")
	if port == "" {
		port = "80"
	}
	if err := engine.Run(":" + port); err != nil {
		panic(err)
	}
}
