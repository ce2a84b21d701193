package game

import (
	"testing"

	"github.com/matryer/is"
)

func TestBetter(t *testing.T) {
	is := is.New(t)
	is.True(Better(WinMax, Draw, true))
	is.True(Better(Draw, WinMin, true))
	is.True(!Better(Draw, Draw, true))
	is.True(Better(WinMin, Draw, false))
	is.True(!Better(WinMax, WinMin, false))
}

func TestValid(t *testing.T) {
	is := is.New(t)
	is.True(WinMax.Valid())
	is.True(Draw.Valid())
	is.True(WinMin.Valid())
	is.True(!Undetermined.Valid())
	is.Equal(WinFor(true), WinMax)
	is.Equal(WinFor(false), WinMin)
	is.Equal(Undetermined.String(), "undetermined")
}
