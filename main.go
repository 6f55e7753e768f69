package main

import (
	"fmt"

	"github.com/virtuolot/showroom-assist-service/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
