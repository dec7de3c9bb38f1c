package main

import (
	"fmt"

	"github.com/nexclub/nexclub/config"
	"github.com/nexclub/nexclub/controllers"
	"github.com/nexclub/nexclub/models"
	"github.com/nexclub/nexclub/routes"
)

func main() {
	if err := config.InitializeConfig(); err != nil {
		fmt.Println(err.Error())
		return
	}

	if err := models.Migrate(config.DataBase); err != nil {
		fmt.Println(err.Error())
		return
	}

	controllers.Initialize()

	r := routes.SetupRouter()
	r.Listen(":3000")
}
