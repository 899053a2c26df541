package main

import (
	"Vnet/cmd"
	"Vnet/pkg"
	"Vnet/pkg/logging"
)

func main() {
	m, err := pkg.NewManager()
	if err != nil {
		logging.Fatalf("initializing: %v", err)
	}
	defer m.Destroy()

	if err := cmd.Execute(m); err != nil {
		logging.Errorf("%v", err)
	}
}
