package writer

import "github.com/hatlonely/rse/ref"

func init() {
	ref.MustRegisterT[*ConsoleWriter](NewConsoleWriterWithOptions)
	ref.MustRegisterT[*FileWriter](NewFileWriterWithOptions)
}
