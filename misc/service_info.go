package misc

import (
	"os"

	"github.com/google/uuid"
)

var serviceInstance = uuid.New().String()

func GetServiceName() string {
	name := os.Getenv("SERVICE_NAME")
	if name == "" {
		name = "fixflow"
	}
	return name
}

func GetServiceInstance() string {
	return serviceInstance
}
