package main

import (
	"fmt"

	"github.com/nexclub/nexclub/config"
	"github.com/nexclub/nexclub/workers/daemons"
)

func main() {
	if err := config.InitializeConfig(); err != nil {
		fmt.Println(err.Error())
		return
	}

	worker := daemons.NewCronJob()
	worker.Start()
}
