// Command scorers runs the scorers job once and exits.
package main

import (
	"os"
	_ "time/tzdata"

	"github.com/fortuna/goalfeed/internal/app"
)

func main() {
	os.Exit(app.RunJob("scorers"))
}
