package codec

import "github.com/hatlonely/rse/ref"

func init() {
	ref.MustRegisterT[*RowsSerializer](NewRowsSerializer)
}
