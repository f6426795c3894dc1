// Command midiplay plays a Standard MIDI File through a SoundFont
// synthesizer in real time.
package main

import (
	"fmt"
	"os"

	"github.com/ongakudo/midiengine/pkg/app"
)

func main() {
	code, err := app.New().Run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "midiplay: %v\n", err)
	}
	os.Exit(code)
}
