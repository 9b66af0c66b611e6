package main

import (
	"github.com/Altius/stampipes/programs/readtools/internal/app"
	"github.com/Altius/stampipes/programs/readtools/internal/appshell"
)

func main() {
	appshell.Main(app.Run)
}
